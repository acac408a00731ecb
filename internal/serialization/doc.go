// Package serialization implements the .tds format used to persist batched datasets.
//
// A .tds file stores a table as named column segments:
//
//	Format Structure:
//	  [4 bytes: Magic "TXDS"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [4 bytes: Reserved]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [8 bytes: Data Size (uint64 LE), uncompressed]
//	  [32 bytes: SHA-256 of the uncompressed data section]
//	  [Header: JSON metadata]
//	  [Padding to a 64-byte boundary]
//	  [Data section: gzip-compressed when FlagCompressed is set]
//
// Segments are laid out back to back in the uncompressed data section. Three
// encodings exist:
//   - string: per row, uvarint byte length then the bytes
//   - int8: one byte per row
//   - int32_ragged: per row, uvarint count then count little-endian int32 values
//
// Example usage:
//
//	w := serialization.NewWriter(serialization.Header{Rows: 3, BatchSize: 2})
//	_ = w.AddStrings("comment_text", serialization.KindFeature, texts)
//	_ = w.AddInt8("toxic", serialization.KindLabel, labels)
//	if err := w.WriteFile("train_ds/data.tds"); err != nil {
//	    return err
//	}
//
//	f, err := serialization.ReadFile("train_ds/data.tds", serialization.ReaderOptions{})
//	texts, err := f.Strings("comment_text")
package serialization
