// Package storage implements the sandboxed filesystem adapter LEO serves
// files from. Every operation resolves a user-supplied relative path
// against a canonicalized root and rejects any path that would escape it,
// lexically, before touching the filesystem.
//
// Example:
//
//	root, err := storage.NewRoot("/srv/leo-files")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := root.WriteWhole("incoming/report.pdf", data); err != nil {
//	    log.Fatal(err)
//	}
package storage
