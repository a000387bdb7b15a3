package pathindex

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vcslog/codec"
	"github.com/hupe1980/vcslog/pmap"
)

// Posting records the kinds of one path in one commit.
type Posting struct {
	Commit int32
	Kinds  []ChangeKind
}

// Postings encodes postings back to back with no count, so appended
// encodings decode to the concatenated list.
var Postings codec.Codec[[]Posting] = postingsCodec{}

type postingsCodec struct{}

func (postingsCodec) Write(w *codec.Writer, v []Posting) error {
	for _, p := range v {
		if err := writePosting(w, p); err != nil {
			return err
		}
	}
	return nil
}

func writePosting(w *codec.Writer, p Posting) error {
	w.WriteInt32(p.Commit)
	return Kinds.Write(w, p.Kinds)
}

func (postingsCodec) Read(r *codec.Reader) ([]Posting, error) {
	var out []Posting
	for !r.EOF() {
		commit, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		kinds, err := Kinds.Read(r)
		if err != nil {
			return nil, err
		}
		out = append(out, Posting{Commit: commit, Kinds: kinds})
	}
	return out, nil
}

// bitmapCodec stores a roaring bitmap in its portable serialization.
type bitmapCodec struct{}

func (bitmapCodec) Write(w *codec.Writer, b *roaring.Bitmap) error {
	data, err := b.ToBytes()
	if err != nil {
		return err
	}
	w.WriteBytes(data)
	return nil
}

func (bitmapCodec) Read(r *codec.Reader) (*roaring.Bitmap, error) {
	data, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	b := roaring.New()
	if err := b.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %w", codec.ErrInvalidLength, err)
	}
	return b, nil
}

// forwardIndex keeps, per commit, the set of touched path ids and, per
// path id, the appended postings of the commits that touched it.
type forwardIndex struct {
	commits  *pmap.LogMap[int32, *roaring.Bitmap]
	postings *pmap.LogMap[int32, []Posting]
}

func openForward(dir string, opts []pmap.Option) (*forwardIndex, error) {
	commits, err := pmap.Open[int32, *roaring.Bitmap](filepath.Join(dir, "commits"), codec.Int32, bitmapCodec{}, opts...)
	if err != nil {
		return nil, err
	}
	postings, err := pmap.Open[int32, []Posting](filepath.Join(dir, "postings"), codec.Int32, Postings, opts...)
	if err != nil {
		_ = commits.Close()
		return nil, err
	}
	return &forwardIndex{commits: commits, postings: postings}, nil
}

func (f *forwardIndex) isIndexed(commit int32) (bool, error) {
	return f.commits.ContainsKey(commit)
}

// update appends one posting per path and then marks the commit indexed.
// A crash in between leaves postings of an unmarked commit; the commit is
// indexed again and iterate skips the repeated postings.
func (f *forwardIndex) update(commit int32, kinds map[int32][]ChangeKind) error {
	ids := make([]int32, 0, len(kinds))
	for id := range kinds {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	touched := roaring.New()
	for _, id := range ids {
		p := Posting{Commit: commit, Kinds: kinds[id]}
		if err := f.postings.AppendData(id, func(w *codec.Writer) error {
			return writePosting(w, p)
		}); err != nil {
			return err
		}
		touched.Add(uint32(id))
	}
	touched.RunOptimize()
	return f.commits.Put(commit, touched)
}

func (f *forwardIndex) iterate(pathID int32, fn func(kinds []ChangeKind, commit int32) bool) error {
	postings, ok, err := f.postings.Get(pathID)
	if err != nil || !ok {
		return err
	}
	seen := make(map[int32]struct{}, len(postings))
	for _, p := range postings {
		if _, dup := seen[p.Commit]; dup {
			continue
		}
		seen[p.Commit] = struct{}{}
		if !fn(slices.Clone(p.Kinds), p.Commit) {
			return nil
		}
	}
	return nil
}

func (f *forwardIndex) commitPaths(commit int32) ([]int32, bool, error) {
	b, ok, err := f.commits.Get(commit)
	if err != nil || !ok {
		return nil, ok, err
	}
	ids := make([]int32, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		ids = append(ids, int32(it.Next()))
	}
	return ids, true, nil
}

func (f *forwardIndex) force() error {
	return errors.Join(f.postings.Force(), f.commits.Force())
}

func (f *forwardIndex) close() error {
	return errors.Join(f.postings.Close(), f.commits.Close())
}

func (f *forwardIndex) closeAndDelete() error {
	return errors.Join(f.postings.CloseAndDelete(), f.commits.CloseAndDelete())
}
