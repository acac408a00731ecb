// Package frame provides the in-memory table used by every pipeline stage.
//
// A Table is an immutable, column-major grid of string cells with an optional
// named index. Operations never modify their receiver; they return new tables.
//
//	Table layout:
//	  index "id"  -> keys    ["0001", "0002", ...]
//	  columns     -> ["comment_text", "toxic", ...]
//	  cells       -> columns[c][row]
//
// Example usage:
//
//	raw, err := frame.ReadFile("data/raw/train.csv", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	train, err := raw.SetIndex("id")
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, frame.ErrColumnNotFound)
//	}
//	fmt.Println(train.Index(), train.Len(), train.Columns())
//
// Files are read through ReadFile, which sniffs gzip, zip and xz content so the
// raw dataset can be stored compressed under its plain .csv name.
package frame
