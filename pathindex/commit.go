package pathindex

// Commit is the change set of one commit, as reported by the VCS.
type Commit struct {
	ID      int32
	Root    string
	Parents []int32
	// Changes holds one entry per parent slot. A commit without parents
	// has a single slot; missing trailing entries mean no changes.
	Changes []ParentChanges
}

// ParentChanges lists the changes against one parent.
type ParentChanges struct {
	Renames  []Rename
	Modified []Modification
}

// Rename moves a relative path.
type Rename struct {
	From string
	To   string
}

// Modification changes a relative path.
type Modification struct {
	Path string
	Type ChangeType
}

// ParentsCount is the number of kind slots recorded per path: the number of
// parents, with a root commit counting as one.
func (c Commit) ParentsCount() int {
	return max(1, len(c.Parents))
}

func (c Commit) changes(slot int) ParentChanges {
	if slot < len(c.Changes) {
		return c.Changes[slot]
	}
	return ParentChanges{}
}
