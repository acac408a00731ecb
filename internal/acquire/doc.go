// Package acquire fetches the raw toxic comment tables and caches them on disk.
//
// Two sources are supported: the Kaggle dataset download API and an S3 bucket
// holding a mirror of the same files. Whatever the source, files land in the raw
// directory through a temp file and rename, so a cache is either complete or
// refetched:
//
//	src, err := acquire.NewSource(ctx, cfg)
//	cache := &acquire.Cache{Dir: cfg.Paths.Raw, Source: src}
//	raw, err := cache.LoadRawTables(ctx)
package acquire
