// Package fs provides the file system seam used by the persistent maps.
//
// Production code uses [Default] ([LocalFS]). Tests wrap it in a [FaultyFS]
// and add rules keyed by a file name fragment:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("data.log", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context.Context: local file operations are not
// interruptible at the syscall level. Remote storage lives in blobstore.
package fs
