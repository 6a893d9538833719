package puzzle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/palemoky/puzzle-together/internal/apperrors"
)

// Difficulty 拼图难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // 4x3
	DifficultyMedium Difficulty = "medium" // 8x6
	DifficultyHard   Difficulty = "hard"   // 10x10
)

// ParseDifficulty 解析难度字符串
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), nil
	default:
		return "", apperrors.ErrInvalidLevel
	}
}

// Grid 返回难度对应的行列数
func (d Difficulty) Grid() (rows, cols int) {
	switch d {
	case DifficultyEasy:
		return 3, 4
	case DifficultyMedium:
		return 6, 8
	case DifficultyHard:
		return 10, 10
	default:
		return 3, 4
	}
}

// Piece 单个拼图块
// Row/Col/CorrectX/CorrectY/Shape 生成后不变；
// CurrentX/CurrentY/IsPlaced/IsLocked/LockedBy 由持有房间锁的调用方修改
type Piece struct {
	ID       string  `json:"id"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	CorrectX float64 `json:"correctX"`
	CorrectY float64 `json:"correctY"`
	CurrentX float64 `json:"currentX"`
	CurrentY float64 `json:"currentY"`
	IsPlaced bool    `json:"isPlaced"`
	IsLocked bool    `json:"isLocked"`
	LockedBy string  `json:"lockedBy,omitempty"`
	Shape    string  `json:"shape"` // 边缘凹凸模式，本模块不解释
}

// Puzzle 一局拼图，房间创建后除拼图块可变字段外不再修改
type Puzzle struct {
	ID         string     `json:"id"`
	ImageURL   string     `json:"imageUrl"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	PieceCount int        `json:"pieceCount"`
	Difficulty Difficulty `json:"difficulty"`
	Pieces     []*Piece   `json:"pieces"`
}

// Piece 按 ID 查找拼图块
func (p *Puzzle) Piece(id string) *Piece {
	for _, piece := range p.Pieces {
		if piece.ID == id {
			return piece
		}
	}
	return nil
}

// Generator 拼图块生成器。切图与形状计算属于外部系统，
// 这里只约定产出：一组带目标位置与初始散布位置的拼图块
type Generator interface {
	Generate(imageURL string, difficulty Difficulty) *Puzzle
}

// 生成拼图的画布尺寸
const (
	boardWidth  = 1200
	boardHeight = 900
)

// GridGenerator 内置的网格切分生成器
// 按难度切成规则网格，初始位置以确定性模式散布在画布下方，
// 便于测试与断线重放时得到一致的布局
type GridGenerator struct{}

// NewGridGenerator 创建网格生成器
func NewGridGenerator() *GridGenerator {
	return &GridGenerator{}
}

// Generate 生成拼图
func (g *GridGenerator) Generate(imageURL string, difficulty Difficulty) *Puzzle {
	rows, cols := difficulty.Grid()
	pieceW := float64(boardWidth) / float64(cols)
	pieceH := float64(boardHeight) / float64(rows)

	pieces := make([]*Piece, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			// 初始位置：在画布下方排成一条打散的带状区域
			scatterX := float64((idx*7)%cols) * pieceW
			scatterY := float64(boardHeight) + pieceH*float64(1+(idx%3))

			pieces = append(pieces, &Piece{
				ID:       fmt.Sprintf("p%d_%d", row, col),
				Row:      row,
				Col:      col,
				CorrectX: float64(col) * pieceW,
				CorrectY: float64(row) * pieceH,
				CurrentX: scatterX,
				CurrentY: scatterY,
				Shape:    edgeShape(row, col, rows, cols),
			})
		}
	}

	return &Puzzle{
		ID:         uuid.NewString(),
		ImageURL:   imageURL,
		Width:      boardWidth,
		Height:     boardHeight,
		PieceCount: len(pieces),
		Difficulty: difficulty,
		Pieces:     pieces,
	}
}

// edgeShape 计算拼图块四边的凹凸模式（上右下左）
// 0 平边，1 凸，-1 凹；相邻两块共享边互补
func edgeShape(row, col, rows, cols int) string {
	top, right, bottom, left := 0, 0, 0, 0
	if row > 0 {
		top = -connector(row-1, col)
	}
	if row < rows-1 {
		bottom = connector(row, col)
	}
	if col > 0 {
		left = -connector(row, col-1)
	}
	if col < cols-1 {
		right = connector(row, col)
	}
	return fmt.Sprintf("%d,%d,%d,%d", top, right, bottom, left)
}

// connector 确定某条内部边的凸起方向
func connector(row, col int) int {
	if (row+col)%2 == 0 {
		return 1
	}
	return -1
}
