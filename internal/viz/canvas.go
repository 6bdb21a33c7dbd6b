package viz

import (
	"strings"

	"github.com/san-kum/spinlab/internal/geom"
)

// World window shown by the canvas.
const (
	worldMinX = -4.0
	worldMaxX = 18.0
	worldMinY = -3.2
	worldMaxY = 3.2
)

// Canvas is a rune grid with a fixed world-to-cell mapping.
type Canvas struct {
	width  int
	height int
	cells  [][]rune
}

func NewCanvas(width, height int) *Canvas {
	cells := make([][]rune, height)
	for i := range cells {
		cells[i] = make([]rune, width)
	}
	c := &Canvas{width: width, height: height, cells: cells}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

// Project maps a world position to cell coordinates. Y grows upward
// in the world and downward on screen.
func (c *Canvas) Project(p geom.Vec2) (int, int) {
	x := int((p.X - worldMinX) / (worldMaxX - worldMinX) * float64(c.width))
	y := int((worldMaxY - p.Y) / (worldMaxY - worldMinY) * float64(c.height))
	return x, y
}

func (c *Canvas) Set(x, y int, r rune) {
	if x >= 0 && x < c.width && y >= 0 && y < c.height {
		c.cells[y][x] = r
	}
}

// SetWorld places a rune at a world position.
func (c *Canvas) SetWorld(p geom.Vec2, r rune) {
	x, y := c.Project(p)
	c.Set(x, y, r)
}

// Label writes a string starting at a world position.
func (c *Canvas) Label(p geom.Vec2, s string) {
	x, y := c.Project(p)
	for i, r := range s {
		c.Set(x+i, y, r)
	}
}

// Box draws the outline of an apparatus between two world corners.
func (c *Canvas) Box(min, max geom.Vec2) {
	x1, y1 := c.Project(geom.Vec2{X: min.X, Y: max.Y})
	x2, y2 := c.Project(geom.Vec2{X: max.X, Y: min.Y})
	for x := x1; x <= x2; x++ {
		c.Set(x, y1, '─')
		c.Set(x, y2, '─')
	}
	for y := y1; y <= y2; y++ {
		c.Set(x1, y, '│')
		c.Set(x2, y, '│')
	}
	c.Set(x1, y1, '┌')
	c.Set(x2, y1, '┐')
	c.Set(x1, y2, '└')
	c.Set(x2, y2, '┘')
}

func (c *Canvas) String() string {
	var b strings.Builder
	for y := range c.cells {
		b.WriteString(string(c.cells[y]))
		b.WriteByte('\n')
	}
	return b.String()
}
