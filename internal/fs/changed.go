package fs

// Changed reports whether a file was replaced, touched or resized between two
// stats. The archiver uses it to flag files modified while being read.
func Changed(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	return now.Size != orig.Size
}
