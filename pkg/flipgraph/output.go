package flipgraph

import (
	"fmt"

	"github.com/matzehuels/triangs/pkg/triang"
)

// emitTriang writes "T[id] := {{...}};" for a counted class.
func (c *Controller) emitTriang(n *triang.Node) {
	if !c.opts.OutputTriangs || c.opts.TriangWriter == nil {
		return
	}
	fmt.Fprintf(c.opts.TriangWriter, "T[%d] := %s;\n", n.ID, n)
}

// emitFlip writes "flip[k] := {src,dst};" for an expanded edge. k is the
// running flip count.
func (c *Controller) emitFlip(src, dst int, f triang.Flip) {
	if !c.opts.OutputFlips || c.opts.TriangWriter == nil {
		return
	}
	fmt.Fprintf(c.opts.TriangWriter, "flip[%d] := {%d,%d}; // supported by %s\n", c.flipcount, src, dst, f)
}

// reportProgress logs the counters and writes the progress line.
func (c *Controller) reportProgress() {
	c.log.Info("progress",
		"step", c.step,
		"symcount", c.symcount,
		"totalcount", c.totalcount,
		"stored", c.Stored(),
		"processed", c.reportcount)
	if c.opts.ProgressWriter != nil {
		fmt.Fprintf(c.opts.ProgressWriter, "%d symmetry classes --- %d total triangulations --- %d currently stored\n",
			c.symcount, c.totalcount, c.Stored())
	}
}
