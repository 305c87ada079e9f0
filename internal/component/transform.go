package component

// Heading directions: 0=N, 1=NE, 2=E, 3=SE, 4=S, 5=SW, 6=W, 7=NW.
var (
	HeadingDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
	HeadingDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
)

// Transform is an entity's placement on the tile grid.
type Transform struct {
	X, Y    int
	Heading int     // facing direction, 0-7
	Scale   float64 // render scale hint; 0 means 1.0
}

// HeadingTo returns the heading that best points from (x,y) toward (tx,ty).
func HeadingTo(x, y, tx, ty int) int {
	dx, dy := sign(tx-x), sign(ty-y)
	for h := 0; h < 8; h++ {
		if HeadingDX[h] == dx && HeadingDY[h] == dy {
			return h
		}
	}
	return 4 // dx==dy==0, keep an arbitrary fixed default
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Collider marks an entity as occupying its tile. Blocking entities are
// treated as temporary obstacles by collision resolution and by pathfinding
// queries with entity avoidance enabled.
type Collider struct {
	Blocking bool
}

// Renderable is the presentation boundary's read-only view data. The core
// never interprets it.
type Renderable struct {
	Sprite  string
	Layer   int
	Visible bool
}
