package main

import (
	"flag"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/puzzle-together/internal/client"
	"github.com/palemoky/puzzle-together/internal/logger"
	"github.com/palemoky/puzzle-together/internal/ui"
)

func main() {
	serverAddr := flag.String("server", "localhost:1790", "服务器地址")
	flag.Parse()

	if err := logger.Init(); err != nil {
		log.Printf("初始化日志失败: %v", err)
	}

	api := client.NewAPI(fmt.Sprintf("http://%s", *serverAddr))
	model := ui.NewModel(api)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("启动客户端时出错: %v", err)
	}
}
