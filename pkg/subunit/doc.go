// Package subunit implements the Subunit v2 binary protocol: a stream of
// framed, checksummed packets that report test progress.
//
// # Overview
//
// Goals:
//
//  1. Report test starts and outcomes as discrete packets
//  2. Carry absolute timestamps for every event
//  3. Attach named, MIME-typed file content (tracebacks, captured output)
//  4. Detect corrupted or truncated streams
//
// # Packet Format
//
// All integers are big endian. Each packet is:
//
//	signature flags length [timestamp] [test_id] [tags] [mime_type] [file] [route_code] crc32
//
// # Fields
//
//   - signature: the single byte 0xB3.
//   - flags: 16 bits. The top nibble is the protocol version (0x2). The
//     remaining bits mark which optional fields follow, and the lowest three
//     bits hold the test status.
//   - length: total packet length in bytes, signature and CRC included,
//     encoded as a number (see below). A packet is at most 4 MiB.
//   - timestamp: 32 bit seconds since the Unix epoch, then nanoseconds as a
//     number.
//   - test_id, mime_type, route_code: strings.
//   - tags: a number giving the count, then that many strings.
//   - file: the file name as a string, then the content length as a number,
//     then the raw content bytes.
//   - crc32: IEEE CRC32 over every preceding byte of the packet.
//
// Numbers use one to four bytes. The two high bits of the first byte hold
// the number of extra bytes, the remaining bits hold the value:
//
//	0x00-0x3F                one byte,   value < 2^6
//	0x40 0x00 - 0x7F 0xFF    two bytes,  value < 2^14
//	0x80 ...                 three bytes, value < 2^22
//	0xC0 ...                 four bytes, value < 2^30
//
// Strings are a number giving the byte length followed by UTF-8 bytes.
//
// # Flags
//
//	0x0800 test_id present
//	0x0400 route_code present
//	0x0200 timestamp present
//	0x0100 runnable
//	0x0080 tags present
//	0x0040 file content present
//	0x0020 mime_type present
//	0x0010 end of file
//	0x0007 status mask
//
// # Status Values
//
//	0 undefined, 1 exists, 2 inprogress, 3 success,
//	4 uxsuccess, 5 skip, 6 fail, 7 xfail
//
// # Example
//
// A test that starts and fails with a traceback is two packets:
//
//	B3 2B02 ... "pkg.Test" ...                                  (inprogress)
//	B3 2B66 ... "pkg.Test" "text/plain" "traceback" "boom" ...  (fail)
package subunit
