//go:build !production

package puzzle

import "fmt"

// TestGenerator 测试用固定网格生成器：单元格 100px，
// 拼图块 ID 为 p1..pN（按行优先），初始散布在 (500,500) 附近
type TestGenerator struct {
	Rows, Cols int
}

// NewTestGenerator 创建测试生成器
func NewTestGenerator(rows, cols int) *TestGenerator {
	return &TestGenerator{Rows: rows, Cols: cols}
}

// Generate 生成确定性的测试拼图
func (g *TestGenerator) Generate(imageURL string, difficulty Difficulty) *Puzzle {
	pieces := make([]*Piece, 0, g.Rows*g.Cols)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			idx := row*g.Cols + col
			pieces = append(pieces, &Piece{
				ID:       fmt.Sprintf("p%d", idx+1),
				Row:      row,
				Col:      col,
				CorrectX: float64(col) * 100,
				CorrectY: float64(row) * 100,
				CurrentX: float64(500 + idx*20),
				CurrentY: 500,
				Shape:    edgeShape(row, col, g.Rows, g.Cols),
			})
		}
	}
	return &Puzzle{
		ID:         "puzzle-test",
		ImageURL:   imageURL,
		Width:      g.Cols * 100,
		Height:     g.Rows * 100,
		PieceCount: len(pieces),
		Difficulty: difficulty,
		Pieces:     pieces,
	}
}
