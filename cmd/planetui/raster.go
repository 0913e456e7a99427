package main

import (
	"math"
	"strings"

	"github.com/presemt/presemt/backend-go/internal/engine"
)

// One terminal cell covers cellW by cellH viewport units.
const (
	cellW = 10.0
	cellH = 20.0
)

type ink int

const (
	inkNone ink = iota
	inkGrid
	inkObject
	inkSelected
	inkLasso
)

type cell struct {
	r   rune
	ink ink
}

// raster is the terminal picture of one frame, row major.
type raster struct {
	cols, rows int
	cells      []cell
}

func newRaster(cols, rows int) *raster {
	r := &raster{cols: max(cols, 0), rows: max(rows, 0)}
	r.cells = make([]cell, r.cols*r.rows)
	for i := range r.cells {
		r.cells[i] = cell{r: ' '}
	}
	return r
}

func (r *raster) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= r.cols || row >= r.rows {
		return nil
	}
	return &r.cells[row*r.cols+col]
}

func (r *raster) line(row int) []cell {
	return r.cells[row*r.cols : (row+1)*r.cols]
}

// viewportOf returns the viewport point at the center of a cell.
func viewportOf(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * cellW, (float64(row) + 0.5) * cellH
}

func cellOf(x, y float64) (int, int) {
	return int(math.Floor(x / cellW)), int(math.Floor(y / cellH))
}

// rasterize draws cmds in painter's order. Objects fill the cells whose
// centers they cover; the grid shows only where its lines cross.
func rasterize(cmds []engine.DrawCommand, cols, rows int) *raster {
	r := newRaster(cols, rows)
	for _, cmd := range cmds {
		m, ok := matrixOf(cmd.Transform)
		if !ok {
			continue
		}
		switch cmd.Op {
		case "path":
			switch cmd.Stroke {
			case engine.GridColor:
				r.grid(cmd.Path, m)
			case engine.LassoColor:
				r.trace(cmd.Path, m, cell{r: '•', ink: inkLasso})
			}
		case "text", "image", "video":
			r.object(cmd, m)
		}
	}
	return r
}

type matrix [6]float64

func matrixOf(s []float64) (matrix, bool) {
	var m matrix
	if len(s) != 6 {
		return m, false
	}
	copy(m[:], s)
	return m, m[0]*m[3]-m[1]*m[2] != 0
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func (m matrix) local(x, y float64) (float64, float64) {
	det := m[0]*m[3] - m[1]*m[2]
	x, y = x-m[4], y-m[5]
	return (m[3]*x - m[2]*y) / det, (-m[1]*x + m[0]*y) / det
}

// segments returns the viewport polylines of a path.
func segments(path []engine.PathCommand, m matrix) [][][2]float64 {
	var out [][][2]float64
	for _, seg := range path {
		if len(seg) == 0 {
			continue
		}
		op, _ := seg[0].(string)
		switch op {
		case "M", "L":
			x, okx := number(seg, 1)
			y, oky := number(seg, 2)
			if !okx || !oky {
				continue
			}
			vx, vy := m.apply(x, y)
			if op == "M" || len(out) == 0 {
				out = append(out, nil)
			}
			out[len(out)-1] = append(out[len(out)-1], [2]float64{vx, vy})
		case "Z":
			if n := len(out); n > 0 && len(out[n-1]) > 0 {
				out[n-1] = append(out[n-1], out[n-1][0])
			}
		}
	}
	return out
}

func number(seg engine.PathCommand, i int) (float64, bool) {
	if i >= len(seg) {
		return 0, false
	}
	switch v := seg[i].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// cellsAlong visits every cell a polyline passes through.
func cellsAlong(poly [][2]float64, visit func(col, row int)) {
	step := min(cellW, cellH) / 2
	if len(poly) == 1 {
		visit(cellOf(poly[0][0], poly[0][1]))
		return
	}
	for i := 1; i < len(poly); i++ {
		a, b := poly[i-1], poly[i]
		n := int(math.Ceil(math.Hypot(b[0]-a[0], b[1]-a[1])/step)) + 1
		n = min(n, 1<<14)
		for k := 0; k <= n; k++ {
			t := float64(k) / float64(n)
			visit(cellOf(a[0]+t*(b[0]-a[0]), a[1]+t*(b[1]-a[1])))
		}
	}
}

func (r *raster) trace(path []engine.PathCommand, m matrix, c cell) {
	for _, poly := range segments(path, m) {
		cellsAlong(poly, func(col, row int) {
			if p := r.at(col, row); p != nil {
				*p = c
			}
		})
	}
}

func (r *raster) grid(path []engine.PathCommand, m matrix) {
	hits := make(map[int]int) // cell index -> grid lines through it
	for _, poly := range segments(path, m) {
		seen := make(map[int]bool)
		cellsAlong(poly, func(col, row int) {
			if r.at(col, row) == nil {
				return
			}
			i := row*r.cols + col
			if !seen[i] {
				seen[i] = true
				hits[i]++
			}
		})
	}
	for i, n := range hits {
		if n >= 2 {
			r.cells[i] = cell{r: '·', ink: inkGrid}
		}
	}
}

func (r *raster) object(cmd engine.DrawCommand, m matrix) {
	if cmd.Width <= 0 || cmd.Height <= 0 {
		return
	}
	in := inkObject
	if cmd.Selected {
		in = inkSelected
	}

	var lines [][]rune
	longest := 0
	if cmd.Op == "text" {
		for _, l := range strings.Split(cmd.Text, "\n") {
			lines = append(lines, []rune(l))
			longest = max(longest, len([]rune(l)))
		}
	}

	// Only cells inside the object's viewport bounds need testing.
	minC, minR, maxC, maxR := r.cols, r.rows, -1, -1
	for _, p := range [][2]float64{{0, 0}, {cmd.Width, 0}, {cmd.Width, cmd.Height}, {0, cmd.Height}} {
		c, rw := cellOf(m.apply(p[0], p[1]))
		minC, minR = min(minC, c), min(minR, rw)
		maxC, maxR = max(maxC, c), max(maxR, rw)
	}
	minC, minR = max(minC, 0), max(minR, 0)
	maxC, maxR = min(maxC, r.cols-1), min(maxR, r.rows-1)

	for row := minR; row <= maxR; row++ {
		for col := minC; col <= maxC; col++ {
			lx, ly := m.local(viewportOf(col, row))
			if lx < 0 || ly < 0 || lx > cmd.Width || ly > cmd.Height {
				continue
			}
			ch := ' '
			switch cmd.Op {
			case "image":
				ch = '░'
			case "video":
				ch = '▓'
			case "text":
				if longest > 0 {
					li := min(int(ly/(cmd.Height/float64(len(lines)))), len(lines)-1)
					ci := int(lx / (cmd.Width / float64(longest)))
					if ci < len(lines[li]) {
						ch = lines[li][ci]
					}
				}
			}
			*r.at(col, row) = cell{r: ch, ink: in}
		}
	}

	if cmd.Op == "video" {
		if p := r.at(cellOf(m.apply(cmd.Width/2, cmd.Height/2))); p != nil {
			*p = cell{r: '▶', ink: in}
		}
	}
}
