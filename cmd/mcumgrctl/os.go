package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-mcumgr/client"
)

func newEchoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "echo <message>...",
		Short: "Send a message and print the device echo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				reply, err := c.OSEcho(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return render(map[string]string{"echo": reply}, func() error {
					fmt.Println(reply)
					return nil
				})
			})
		},
	}
}

func newTaskStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taskstat",
		Short: "Show RTOS task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				tasks, err := c.OSTaskStatistics(cmd.Context())
				if err != nil {
					return err
				}

				return render(tasks, func() error {
					names := make([]string, 0, len(tasks))
					for name := range tasks {
						names = append(names, name)
					}
					sort.Strings(names)

					rows := make([][]string, 0, len(names))
					for _, name := range names {
						t := tasks[name]
						rows = append(rows, []string{
							name,
							strconv.Itoa(int(t.Priority)),
							strconv.FormatUint(uint64(t.TaskID), 10),
							strconv.FormatUint(uint64(t.State), 10),
							fmt.Sprintf("%d/%d", t.StackUsed*4, t.StackSize*4),
							strconv.FormatUint(t.ContextSwitches, 10),
							strconv.FormatUint(t.Runtime, 10),
						})
					}
					return table([]string{"Task", "Prio", "TID", "State", "Stack (bytes)", "Switches", "Runtime"}, rows)
				})
			})
		},
	}
}

func newParamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show the device SMP buffer size and count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				p, err := c.OSMCUmgrParameters(cmd.Context())
				if err != nil {
					return err
				}
				out := map[string]uint32{"buf_size": p.BufSize, "buf_count": p.BufCount}
				return render(out, func() error {
					fmt.Printf("buf_size:  %d\nbuf_count: %d\n", p.BufSize, p.BufCount)
					return nil
				})
			})
		},
	}
}

func newInfoCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show OS and application information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				info, err := c.OSApplicationInfo(cmd.Context(), format)
				if err != nil {
					return err
				}
				return render(map[string]string{"info": info}, func() error {
					fmt.Println(info)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", `uname-like field selection, e.g. "a" for all`)
	return cmd
}

func newBootloaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootloader",
		Short: "Show the device bootloader and, for MCUboot, its mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				name, err := c.OSBootloaderInfo(cmd.Context())
				if err != nil {
					return err
				}

				out := map[string]any{"bootloader": name}
				if strings.EqualFold(name, "MCUboot") {
					mode, noDowngrade, err := c.OSBootloaderMode(cmd.Context())
					if err != nil {
						return err
					}
					out["mode"] = mode
					out["mode_name"] = client.MCUbootModeName(mode)
					out["no_downgrade"] = noDowngrade
				}

				return render(out, func() error {
					fmt.Println("bootloader:", name)
					if mode, ok := out["mode"]; ok {
						fmt.Printf("mode:       %d (%s)\n", mode, out["mode_name"])
						fmt.Println("downgrade: ", !out["no_downgrade"].(bool))
					}
					return nil
				})
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	var (
		force    bool
		bootMode int
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reboot the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode *uint8
			if cmd.Flags().Changed("boot-mode") {
				if bootMode < 0 || bootMode > 255 {
					return fmt.Errorf("boot mode must be 0-255, got %d", bootMode)
				}
				m := uint8(bootMode)
				mode = &m
			}

			return withClient(func(c *client.Client) error {
				if err := c.OSReset(cmd.Context(), force, mode); err != nil {
					return err
				}
				pterm.Success.Println("Device reset")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reset even if the application vetoes it")
	cmd.Flags().IntVar(&bootMode, "boot-mode", 0, "boot mode to request after reset")
	return cmd
}

func newDateTimeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datetime",
		Short: "Read the device RTC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				t, err := c.OSDateTime(cmd.Context())
				if err != nil {
					return err
				}
				return render(map[string]string{"datetime": t.Format(time.RFC3339)}, func() error {
					fmt.Println(t.Format(time.RFC3339))
					return nil
				})
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [datetime]",
		Short: "Set the device RTC (default: local time now)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := time.Now()
			if len(args) == 1 {
				var err error
				if t, err = client.ParseDateTime(args[0]); err != nil {
					return err
				}
			}

			return withClient(func(c *client.Client) error {
				if err := c.OSSetDateTime(cmd.Context(), t); err != nil {
					return err
				}
				pterm.Success.Println("Device time set to", t.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	})
	return cmd
}
