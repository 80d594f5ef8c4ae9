package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-mcumgr/bootloader"
	"github.com/moffa90/go-mcumgr/client"
	"github.com/moffa90/go-mcumgr/mcuboot"
	"github.com/moffa90/go-mcumgr/protocol"
)

// slotView is the output form of an image slot.
type slotView struct {
	Image     uint32 `json:"image" yaml:"image"`
	Slot      uint32 `json:"slot" yaml:"slot"`
	Version   string `json:"version" yaml:"version"`
	Hash      string `json:"hash" yaml:"hash"`
	Bootable  bool   `json:"bootable" yaml:"bootable"`
	Pending   bool   `json:"pending" yaml:"pending"`
	Confirmed bool   `json:"confirmed" yaml:"confirmed"`
	Active    bool   `json:"active" yaml:"active"`
	Permanent bool   `json:"permanent" yaml:"permanent"`
}

func (s slotView) flags() string {
	var f []string
	for _, flag := range []struct {
		set  bool
		name string
	}{
		{s.Active, "active"},
		{s.Confirmed, "confirmed"},
		{s.Pending, "pending"},
		{s.Permanent, "permanent"},
		{s.Bootable, "bootable"},
	} {
		if flag.set {
			f = append(f, flag.name)
		}
	}
	return strings.Join(f, ",")
}

func renderSlots(images []protocol.ImageSlotState) error {
	views := make([]slotView, 0, len(images))
	for _, img := range images {
		views = append(views, slotView{
			Image:     img.Image,
			Slot:      img.Slot,
			Version:   img.Version,
			Hash:      hex.EncodeToString(img.Hash),
			Bootable:  img.Bootable,
			Pending:   img.Pending,
			Confirmed: img.Confirmed,
			Active:    img.Active,
			Permanent: img.Permanent,
		})
	}

	return render(views, func() error {
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			rows = append(rows, []string{
				strconv.FormatUint(uint64(v.Image), 10),
				strconv.FormatUint(uint64(v.Slot), 10),
				v.Version,
				v.flags(),
				v.Hash,
			})
		}
		return table([]string{"Image", "Slot", "Version", "Flags", "Hash"}, rows)
	})
}

func parseHash(s string) ([]byte, error) {
	hash, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid image hash %q: %w", s, err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("image hash cannot be empty")
	}
	return hash, nil
}

func newImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage firmware images",
	}
	cmd.AddCommand(
		newImageListCmd(),
		newImageUploadCmd(),
		newImageTestCmd(),
		newImageConfirmCmd(),
		newImageEraseCmd(),
		newImageParseCmd(),
	)
	return cmd
}

func newImageListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the images on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				images, err := c.ImageState(cmd.Context())
				if err != nil {
					return err
				}
				return renderSlots(images)
			})
		},
	}
}

func newImageUploadCmd() *cobra.Command {
	var (
		image   uint32
		upgrade bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image into the secondary slot without activating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			return withClient(func(c *client.Client) error {
				bar := newProgressBar("Uploading image")
				err := c.ImageUpload(cmd.Context(), image, data, upgrade, bar.Update)
				bar.Stop()
				if err != nil {
					return err
				}
				pterm.Success.Printf("Uploaded %d bytes\n", len(data))
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&image, "image", 0, "image number on multi-image devices")
	cmd.Flags().BoolVar(&upgrade, "upgrade", false, "refuse images that are not newer than the running one")
	return cmd
}

func newImageTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <hash>",
		Short: "Mark an image for a single test boot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *client.Client) error {
				images, err := c.ImageSetState(cmd.Context(), hash, false)
				if err != nil {
					return err
				}
				return renderSlots(images)
			})
		},
	}
}

func newImageConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm [hash]",
		Short: "Confirm an image permanently (default: the running image)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hash []byte
			if len(args) == 1 {
				var err error
				if hash, err = parseHash(args[0]); err != nil {
					return err
				}
			}
			return withClient(func(c *client.Client) error {
				images, err := c.ImageSetState(cmd.Context(), hash, true)
				if err != nil {
					return err
				}
				return renderSlots(images)
			})
		},
	}
}

func newImageEraseCmd() *cobra.Command {
	var slot uint32
	cmd := &cobra.Command{
		Use:   "erase",
		Short: "Erase an image slot (default: the secondary slot)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *uint32
			if cmd.Flags().Changed("slot") {
				s = &slot
			}
			return withClient(func(c *client.Client) error {
				if err := c.ImageErase(cmd.Context(), s); err != nil {
					return err
				}
				pterm.Success.Println("Slot erased")
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&slot, "slot", 1, "slot to erase")
	return cmd
}

// imageView is the output form of a parsed image file.
type imageView struct {
	Version    string   `json:"version" yaml:"version"`
	HashType   string   `json:"hash_type" yaml:"hash_type"`
	Hash       string   `json:"hash" yaml:"hash"`
	LoadAddr   string   `json:"load_addr" yaml:"load_addr"`
	HeaderSize uint16   `json:"header_size" yaml:"header_size"`
	ImageSize  uint32   `json:"image_size" yaml:"image_size"`
	TotalSize  int      `json:"total_size" yaml:"total_size"`
	Flags      string   `json:"flags" yaml:"flags"`
	TLVs       []string `json:"tlvs" yaml:"tlvs"`
}

func newImageParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Validate an MCUboot image file and show its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := mcuboot.ParseFile(args[0])
			if err != nil {
				return err
			}

			v := imageView{
				Version:    info.Version.String(),
				HashType:   info.HashType.String(),
				Hash:       hex.EncodeToString(info.Hash),
				LoadAddr:   fmt.Sprintf("0x%08X", info.LoadAddr),
				HeaderSize: info.HeaderSize,
				ImageSize:  info.ImageSize,
				TotalSize:  info.TotalSize(),
				Flags:      fmt.Sprintf("0x%08X", info.Flags),
			}
			for _, tlv := range info.TLVs {
				name := mcuboot.TLVName(tlv.Type)
				if tlv.Protected {
					name += " (protected)"
				}
				v.TLVs = append(v.TLVs, fmt.Sprintf("%s: %d bytes", name, len(tlv.Value)))
			}

			return render(v, func() error {
				fmt.Printf("version:     %s\n", v.Version)
				fmt.Printf("hash:        %s (%s)\n", v.Hash, v.HashType)
				fmt.Printf("load addr:   %s\n", v.LoadAddr)
				fmt.Printf("header size: %d\n", v.HeaderSize)
				fmt.Printf("image size:  %d\n", v.ImageSize)
				fmt.Printf("total size:  %d\n", v.TotalSize)
				fmt.Printf("flags:       %s\n", v.Flags)
				for _, t := range v.TLVs {
					fmt.Println("tlv:        ", t)
				}
				return nil
			})
		},
	}
}

func newFirmwareUpdateCmd() *cobra.Command {
	var (
		params   bootloader.Params
		bootName string
		image    uint32
		upgrade  bool
	)
	cmd := &cobra.Command{
		Use:   "firmware-update <file>",
		Short: "Upload an image, mark it for boot and reset the device",
		Long: `Upload an MCUboot image, check that the device accepted it, mark it for a
test boot (or confirm it with --force-confirm) and reset the device.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			if bootName != "" {
				bt := bootloader.ParseBootloaderType(bootName)
				params.BootloaderType = &bt
			}

			return withClient(func(c *client.Client) error {
				u := bootloader.New(c,
					bootloader.WithImage(image),
					bootloader.WithUpgradeOnly(upgrade),
				)

				var bar *progressBar
				err := u.FirmwareUpdate(cmd.Context(), data, params,
					func(label string, p *bootloader.Progress) bool {
						if p == nil {
							if bar != nil {
								bar.Stop()
								bar = nil
							}
							pterm.Info.Println(label)
							return true
						}
						if bar == nil {
							bar = newProgressBar(label)
						}
						return bar.Update(p.Current, p.Total)
					})
				if bar != nil {
					bar.Stop()
				}
				if err != nil {
					return err
				}

				pterm.Success.Println("Firmware update complete")
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&params.SkipReboot, "skip-reboot", false, "do not reset the device after the update")
	f.BoolVar(&params.ForceConfirm, "force-confirm", false, "confirm the image instead of a test boot")
	f.StringVar(&bootName, "bootloader", "", "bootloader name, skips detection (e.g. MCUboot)")
	f.Uint32Var(&image, "image", 0, "image number on multi-image devices")
	f.BoolVar(&upgrade, "upgrade", false, "refuse images that are not newer than the running one")
	return cmd
}
