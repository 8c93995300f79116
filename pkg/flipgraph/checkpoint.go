package flipgraph

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sugawarayuuta/sonnet"

	"github.com/matzehuels/triangs/pkg/errors"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

// Identity is the part of a checkpoint that must match the running input.
type Identity struct {
	No         int
	Rank       int
	Points     string
	Chirotope  string
	Symmetries string
}

// NodeRecord is a stored node in a checkpoint.
type NodeRecord struct {
	ID        int          `json:"id"`
	Simplices [][]int      `json:"simplices"`
	Flips     []FlipRecord `json:"flips"`
}

// FlipRecord is one flip table entry in a checkpoint.
type FlipRecord struct {
	Minus  [][]int `json:"minus"`
	Plus   [][]int `json:"plus"`
	Marked bool    `json:"marked,omitempty"`
}

// Checkpoint is the serialized state of a controller between two nodes.
type Checkpoint struct {
	Identity

	RunID       string
	Step        int
	NextID      int
	Previous    []NodeRecord
	New         []NodeRecord
	TotalCount  uint64
	SymCount    uint64
	ReportCount uint64
	FlipCount   uint64
}

var requiredKeys = []string{
	"no", "rank", "points", "chirotope", "symmetries",
	"previous", "new", "totalcount", "symcount", "reportcount",
}

// Write serializes cp as one "<keyword> <value>" line per field.
func (cp *Checkpoint) Write(w io.Writer) error {
	prev, err := sonnet.Marshal(cp.Previous)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode previous layer")
	}
	next, err := sonnet.Marshal(cp.New)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode new layer")
	}
	bw := bufio.NewWriter(w)
	if cp.RunID != "" {
		fmt.Fprintf(bw, "runid %s\n", cp.RunID)
	}
	fmt.Fprintf(bw, "no %d\n", cp.No)
	fmt.Fprintf(bw, "rank %d\n", cp.Rank)
	fmt.Fprintf(bw, "points %s\n", cp.Points)
	fmt.Fprintf(bw, "chirotope %s\n", cp.Chirotope)
	fmt.Fprintf(bw, "symmetries %s\n", cp.Symmetries)
	fmt.Fprintf(bw, "step %d\n", cp.Step)
	fmt.Fprintf(bw, "nextid %d\n", cp.NextID)
	fmt.Fprintf(bw, "previous %s\n", prev)
	fmt.Fprintf(bw, "new %s\n", next)
	fmt.Fprintf(bw, "totalcount %d\n", cp.TotalCount)
	fmt.Fprintf(bw, "symcount %d\n", cp.SymCount)
	fmt.Fprintf(bw, "reportcount %d\n", cp.ReportCount)
	fmt.Fprintf(bw, "flipcount %d\n", cp.FlipCount)
	return bw.Flush()
}

// ReadCheckpoint parses a checkpoint. Unknown keywords are ignored. If
// expected is non-nil the identity fields are compared against it and the
// first difference is returned as a CHECKPOINT_MISMATCH error wrapping an
// *errors.MismatchError.
func ReadCheckpoint(r io.Reader, expected *Identity) (*Checkpoint, error) {
	cp := &Checkpoint{}
	seen := make(map[string]bool)
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeCheckpointCorrupt, err, "read line %d", lineNo)
		}
		if text := strings.TrimSpace(line); text != "" && !strings.HasPrefix(text, "#") {
			key, value, _ := strings.Cut(text, " ")
			if perr := cp.set(key, strings.TrimSpace(value)); perr != nil {
				return nil, errors.Wrap(errors.ErrCodeCheckpointCorrupt, perr, "line %d (%s)", lineNo, key)
			}
			seen[key] = true
		}
		if err == io.EOF {
			break
		}
	}
	for _, k := range requiredKeys {
		if !seen[k] {
			return nil, errors.New(errors.ErrCodeCheckpointCorrupt, "missing %q", k)
		}
	}
	if expected != nil {
		if err := cp.Verify(*expected); err != nil {
			return nil, err
		}
	}
	return cp, nil
}

func (cp *Checkpoint) set(key, value string) error {
	var err error
	switch key {
	case "runid":
		cp.RunID = value
	case "no":
		cp.No, err = strconv.Atoi(value)
	case "rank":
		cp.Rank, err = strconv.Atoi(value)
	case "points":
		cp.Points = value
	case "chirotope":
		cp.Chirotope = value
	case "symmetries":
		cp.Symmetries = value
	case "step":
		cp.Step, err = strconv.Atoi(value)
	case "nextid":
		cp.NextID, err = strconv.Atoi(value)
	case "previous":
		err = sonnet.Unmarshal([]byte(value), &cp.Previous)
	case "new":
		err = sonnet.Unmarshal([]byte(value), &cp.New)
	case "totalcount":
		cp.TotalCount, err = strconv.ParseUint(value, 10, 64)
	case "symcount":
		cp.SymCount, err = strconv.ParseUint(value, 10, 64)
	case "reportcount":
		cp.ReportCount, err = strconv.ParseUint(value, 10, 64)
	case "flipcount":
		cp.FlipCount, err = strconv.ParseUint(value, 10, 64)
	}
	return err
}

// Verify compares the identity fields of cp against want.
func (cp *Checkpoint) Verify(want Identity) error {
	fields := []struct {
		name       string
		want, have string
	}{
		{"no", strconv.Itoa(want.No), strconv.Itoa(cp.No)},
		{"rank", strconv.Itoa(want.Rank), strconv.Itoa(cp.Rank)},
		{"points", want.Points, cp.Points},
		{"chirotope", want.Chirotope, cp.Chirotope},
		{"symmetries", want.Symmetries, cp.Symmetries},
	}
	for _, f := range fields {
		if f.want != f.have {
			mm := &errors.MismatchError{Field: f.name, Expected: f.want, Found: f.have}
			return errors.Wrap(mm.Code(), mm, "checkpoint belongs to a different input")
		}
	}
	return nil
}

// Identity returns the identity of the running input.
func (c *Controller) Identity() Identity {
	return Identity{
		No:         c.prob.Points.No(),
		Rank:       c.prob.Points.Rank(),
		Points:     c.prob.Points.String(),
		Chirotope:  c.prob.Chiro.String(),
		Symmetries: symmetry.FormatGenerators(c.prob.Group.Generators()),
	}
}

// Checkpoint snapshots the controller.
func (c *Controller) Checkpoint() *Checkpoint {
	return &Checkpoint{
		Identity:    c.Identity(),
		RunID:       c.opts.RunID,
		Step:        c.step,
		NextID:      c.nextID,
		Previous:    encodeLayer(c.previous),
		New:         encodeLayer(c.next),
		TotalCount:  c.totalcount,
		SymCount:    c.symcount,
		ReportCount: c.reportcount,
		FlipCount:   c.flipcount,
	}
}

// WriteCheckpoint writes a snapshot of the controller to w.
func (c *Controller) WriteCheckpoint(w io.Writer) error {
	return c.Checkpoint().Write(w)
}

// SaveCheckpoint writes the next rotating checkpoint file under
// CheckpointDir and returns its path. The file is written to a temporary
// name first and renamed into place.
func (c *Controller) SaveCheckpoint(ctx context.Context) (string, error) {
	dir := c.opts.CheckpointDir
	path := filepath.Join(dir, fmt.Sprintf("checkpoint.%d.dat", c.saves%c.opts.CheckpointFiles))
	err := c.saveTo(dir, path)
	c.hooks.OnCheckpoint(ctx, path, err)
	if err != nil {
		return "", err
	}
	c.saves++
	c.log.Debug("checkpoint saved", "path", path, "step", c.step, "stored", c.Stored())
	return path, nil
}

func (c *Controller) saveTo(dir, path string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "checkpoint-*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())
	if err := c.WriteCheckpoint(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "sync checkpoint")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "close checkpoint")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "rename checkpoint to %s", path)
	}
	return nil
}

// Resume loads the checkpoint at path into an empty controller.
func (c *Controller) Resume(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "checkpoint %s", path)
		}
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "open checkpoint %s", path)
	}
	defer f.Close()
	want := c.Identity()
	cp, err := ReadCheckpoint(f, &want)
	if err != nil {
		return err
	}
	return c.Restore(cp)
}

// Restore loads cp into an empty controller. Stabilizers and fingerprints
// are recomputed.
func (c *Controller) Restore(cp *Checkpoint) error {
	if c.Stored() > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "frontier is not empty")
	}
	if err := cp.Verify(c.Identity()); err != nil {
		return err
	}
	nextID := 0
	for _, l := range []struct {
		dst  layer
		recs []NodeRecord
	}{{c.previous, cp.Previous}, {c.next, cp.New}} {
		for _, nr := range l.recs {
			rec, err := c.decodeRecord(nr)
			if err != nil {
				return errors.Wrap(errors.ErrCodeCheckpointCorrupt, err, "node %d", nr.ID)
			}
			if _, dup := c.previous[rec.node.Key()]; dup {
				return errors.New(errors.ErrCodeCheckpointCorrupt, "node %d stored twice", nr.ID)
			}
			if _, dup := c.next[rec.node.Key()]; dup {
				return errors.New(errors.ErrCodeCheckpointCorrupt, "node %d stored twice", nr.ID)
			}
			var stab []int
			if !c.prob.Group.IsTrivial() {
				stab = c.exec.buildOrbit(orbitJob{node: rec.node}).stabilizer
			}
			c.store(l.dst, rec, stab)
			nextID = max(nextID, nr.ID+1)
		}
	}
	c.nextID = max(nextID, cp.NextID)
	c.step = cp.Step
	c.symcount = cp.SymCount
	c.totalcount = cp.TotalCount
	c.reportcount = cp.ReportCount
	c.flipcount = cp.FlipCount
	if cp.RunID != "" && c.opts.RunID == "" {
		c.opts.RunID = cp.RunID
	}
	c.log.Info("resumed from checkpoint",
		"step", c.step,
		"previous", len(c.previous),
		"new", len(c.next),
		"symcount", c.symcount,
		"totalcount", c.totalcount)
	return nil
}

func encodeLayer(l layer) []NodeRecord {
	out := make([]NodeRecord, 0, len(l))
	for _, rec := range l.ordered() {
		nr := NodeRecord{ID: rec.node.ID, Simplices: rec.node.PointLists()}
		rec.table.Each(func(f triang.Flip, marked bool) {
			nr.Flips = append(nr.Flips, FlipRecord{
				Minus:  pointLists(f.Minus),
				Plus:   pointLists(f.Plus),
				Marked: marked,
			})
		})
		out = append(out, nr)
	}
	return out
}

func (c *Controller) decodeRecord(nr NodeRecord) (*record, error) {
	no, rank := c.prob.Points.No(), c.prob.Points.Rank()
	node, err := triang.NodeFromPointLists(no, rank, nr.Simplices)
	if err != nil {
		return nil, err
	}
	node.ID = nr.ID
	table := triang.NewFlipTable()
	for _, fr := range nr.Flips {
		minus, err := simplices(no, rank, fr.Minus)
		if err != nil {
			return nil, err
		}
		plus, err := simplices(no, rank, fr.Plus)
		if err != nil {
			return nil, err
		}
		f := triang.NewFlip(minus, plus)
		if fr.Marked {
			table.Mark(f)
		} else {
			table.Add(f)
		}
	}
	return &record{node: node, table: table, fp: c.fingerprint(node)}, nil
}

func pointLists(ss []triang.Simplex) [][]int {
	out := make([][]int, len(ss))
	for i, s := range ss {
		out[i] = s.Points()
	}
	return out
}

func simplices(no, rank int, lists [][]int) ([]triang.Simplex, error) {
	n, err := triang.NodeFromPointLists(no, rank, lists)
	if err != nil {
		return nil, err
	}
	if n.Len() != len(lists) {
		return nil, fmt.Errorf("repeated simplex in %v", lists)
	}
	return n.Simplices(), nil
}
