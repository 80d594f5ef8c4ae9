// Package mcuboot parses MCUboot firmware images.
//
// # Image Format
//
// An MCUboot image is a fixed header, the padded header area, the
// application body and a trailing TLV area:
//
//	[HEADER(32)][PAD...][BODY(img_size)][PROTECTED TLVs][TLVs]
//
// Header (little-endian):
//
//	magic(4) load_addr(4) hdr_size(2) protect_tlv_size(2) img_size(4)
//	flags(4) version{major(1) minor(1) revision(2) build(4)} pad(4)
//
// The TLV area starts at hdr_size + img_size. Each TLV block begins with an
// info header {magic(2), total(2)}; entries follow as {type(2), len(2), value}.
// The protected block (magic 0x6908) is optional and covered by the image
// hash. The unprotected block (magic 0x6907) carries the hash itself.
//
// # Usage
//
// Parse an image file:
//
//	info, err := mcuboot.ParseFile("zephyr.signed.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Version: %s\n", info.Version)
//	fmt.Printf("Hash:    %x\n", info.Hash)
//
// Parse from an io.Reader. The body is streamed through the hash and is
// never held in memory:
//
//	info, err := mcuboot.Parse(resp.Body)
//
// # Validation
//
// Parse verifies that:
//   - The header magic is the current MCUboot magic
//   - The header, body and TLV areas are complete
//   - A SHA256, SHA384 or SHA512 hash TLV is present
//   - The hash matches the header, body and protected TLVs
package mcuboot
