package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-mcumgr/client"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <command> [args...]",
		Short: "Run a shell command on the device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				out, ret, err := c.ShellExecute(cmd.Context(), args)
				if err != nil {
					return err
				}

				result := map[string]any{"output": out, "ret": ret}
				if err := render(result, func() error {
					fmt.Print(out)
					if out != "" && !strings.HasSuffix(out, "\n") {
						fmt.Println()
					}
					return nil
				}); err != nil {
					return err
				}
				if ret != 0 {
					return fmt.Errorf("shell command exited with code %d", ret)
				}
				return nil
			})
		},
	}
}

func newFSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Access the device file system",
	}
	cmd.AddCommand(
		newFSUploadCmd(),
		newFSDownloadCmd(),
		newFSStatusCmd(),
		newFSChecksumCmd(),
		newFSTypesCmd(),
		newFSCloseCmd(),
	)
	return cmd
}

func newFSUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local file> <device path>",
		Short: "Upload a file to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			return withClient(func(c *client.Client) error {
				bar := newProgressBar("Uploading " + args[1])
				err := c.FSFileUpload(cmd.Context(), args[1], data, bar.Update)
				bar.Stop()
				if err != nil {
					return err
				}
				pterm.Success.Printf("Uploaded %d bytes to %s\n", len(data), args[1])
				return nil
			})
		},
	}
}

func newFSDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <device path> <local file>",
		Short: "Download a file from the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				bar := newProgressBar("Downloading " + args[0])
				data, err := c.FSFileDownload(cmd.Context(), args[0], bar.Update)
				bar.Stop()
				if err != nil {
					return err
				}

				if err := os.WriteFile(args[1], data, 0o644); err != nil {
					return fmt.Errorf("failed to write file: %w", err)
				}
				pterm.Success.Printf("Downloaded %d bytes to %s\n", len(data), args[1])
				return nil
			})
		},
	}
}

func newFSStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <device path>",
		Short: "Show the size of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				size, err := c.FSFileStatus(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(map[string]any{"name": args[0], "len": size}, func() error {
					fmt.Printf("%s: %d bytes\n", args[0], size)
					return nil
				})
			})
		},
	}
}

func newFSChecksumCmd() *cobra.Command {
	var (
		algorithm string
		off       uint64
		length    uint64
	)
	cmd := &cobra.Command{
		Use:   "checksum <device path>",
		Short: "Compute a hash or checksum of a file on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				resp, err := c.FSFileChecksum(cmd.Context(), args[0], algorithm, off, length)
				if err != nil {
					return err
				}

				sum := hex.EncodeToString(resp.Output.Bytes())
				out := map[string]any{
					"name":   args[0],
					"type":   resp.Type,
					"off":    resp.Off,
					"len":    resp.Len,
					"output": sum,
				}
				return render(out, func() error {
					fmt.Printf("%s  %s (%s, %d bytes at %d)\n", sum, args[0], resp.Type, resp.Len, resp.Off)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&algorithm, "type", "t", "", "algorithm, e.g. sha256 or crc32 (default: device default)")
	cmd.Flags().Uint64Var(&off, "off", 0, "start offset")
	cmd.Flags().Uint64Var(&length, "len", 0, "number of bytes (0: to the end)")
	return cmd
}

func newFSTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the hash and checksum algorithms the device supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				types, err := c.FSSupportedChecksumTypes(cmd.Context())
				if err != nil {
					return err
				}

				return render(types, func() error {
					names := make([]string, 0, len(types))
					for name := range types {
						names = append(names, name)
					}
					sort.Strings(names)

					rows := make([][]string, 0, len(names))
					for _, name := range names {
						t := types[name]
						rows = append(rows, []string{name, t.Format.String(), strconv.FormatUint(uint64(t.Size), 10)})
					}
					return table([]string{"Type", "Format", "Size"}, rows)
				})
			})
		},
	}
}

func newFSCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close files left open by an interrupted transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				return c.FSFileClose(cmd.Context())
			})
		},
	}
}
