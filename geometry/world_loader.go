package geometry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// World 生成请求的输入文档
type World struct {
	Tiles     Grid       `json:"tiles"`
	Obstacles []Obstacle `json:"obstacles"`
}

// DecodeWorld 从 JSON 读取并校验世界描述
func DecodeWorld(r io.Reader) (*World, error) {
	var w World
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to parse world JSON: %w", err)
	}
	if err := w.Tiles.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// LoadWorldFromFile 读取 JSON 世界文件
func LoadWorldFromFile(path string) (*World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	defer f.Close()
	return DecodeWorld(f)
}
