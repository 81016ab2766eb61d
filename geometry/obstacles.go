package geometry

// Obstacle 与网格无关的障碍物输入
type Obstacle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	IsDebris bool    `json:"isDebris"`
}

// PlacedObstacle 带流内序号的障碍物
type PlacedObstacle struct {
	ID int `json:"id"`
	Obstacle
}

// PartitionObstacles 按输入顺序把障碍物分到 obstacles / debris 两条流，各自从 0 编号
func PartitionObstacles(list []Obstacle) (obstacles, debris []PlacedObstacle) {
	obstacles = make([]PlacedObstacle, 0, len(list))
	debris = make([]PlacedObstacle, 0)
	for _, o := range list {
		if o.IsDebris {
			debris = append(debris, PlacedObstacle{ID: len(debris), Obstacle: o})
		} else {
			obstacles = append(obstacles, PlacedObstacle{ID: len(obstacles), Obstacle: o})
		}
	}
	return obstacles, debris
}
