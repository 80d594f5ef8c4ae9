// Package bootloader updates the firmware of MCUboot based devices over
// MCUmgr.
//
// # Overview
//
// FirmwareUpdate runs the complete update sequence:
//   - Parsing and validating the MCUboot image
//   - Detecting the device bootloader
//   - Uploading the image into the secondary slot
//   - Checking that the device lists the uploaded image
//   - Marking the image for a test boot, or confirming it
//   - Resetting the device
//
// # Basic Usage
//
//	port, err := transport.OpenSerial(transport.SerialConfig{Port: "/dev/ttyACM0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := client.New(port)
//	defer c.Close()
//
//	data, err := os.ReadFile("zephyr.signed.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = bootloader.FirmwareUpdate(context.Background(), c, data, bootloader.Params{}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// By default the new image is marked for a single test boot. MCUboot reverts
// to the previous image on the next reset unless the new firmware confirms
// itself. Params.ForceConfirm makes the image permanent right away and
// Params.SkipReboot leaves the reset to the caller.
//
// # Progress Tracking
//
// The progress callback receives a label when each step starts, and byte
// progress while the image is uploaded:
//
//	cb := func(label string, p *bootloader.Progress) bool {
//	    if p == nil {
//	        fmt.Println(label)
//	    } else {
//	        fmt.Printf("\r%s: %.1f%%", label, p.Percentage())
//	    }
//	    return true
//	}
//
// Returning false cancels the update between steps or between upload chunks.
//
// # Configuration Options
//
//	u := bootloader.New(c,
//	    bootloader.WithLogger(logger),
//	    bootloader.WithImage(1),
//	    bootloader.WithUpgradeOnly(true),
//	)
//	err := u.FirmwareUpdate(ctx, data, bootloader.Params{ForceConfirm: true}, cb)
//
// # Error Handling
//
// Failures are returned as *UpdateError, which names the failed Step and
// wraps the cause:
//   - mcuboot.ErrBadMagic, mcuboot.ErrTruncated, ...: the image is invalid
//     and nothing was sent
//   - ErrBootloaderUnknown, ErrUnsupportedBootloader: detection failed
//   - ErrProgressCallback: the callback cancelled the update
//   - ErrImageNotFound: the device does not list the uploaded image
//   - *protocol.DeviceError: the device rejected a command
//
// Nothing is rolled back on failure. The bootloader's test boot and revert
// mechanism keeps the device bootable.
package bootloader
