// Command planetui edits a canvas in the terminal with the mouse.
package main

import (
	"flag"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/presemt/presemt/backend-go/internal/config"
	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/gesture"
	"github.com/presemt/presemt/backend-go/internal/panel"
	"github.com/presemt/presemt/backend-go/internal/plane"
)

func main() {
	sample := flag.Bool("sample", true, "start from the sample canvas")
	doc := flag.String("doc", "", "load a document JSON file")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Parse()

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	logOut, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if *logFile != "" {
		logOut, err = os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	if err != nil {
		slog.Error("open log", "error", err)
		os.Exit(1)
	}
	defer logOut.Close()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	var m *model
	eng, err := engine.NewEngine(engine.Options{
		Grid:    plane.Grid{Spacing: cfg.GridSpacing, Extent: cfg.GridExtent},
		MinZoom: cfg.MinZoom,
		MaxZoom: cfg.MaxZoom,
		Gesture: gesture.Options{
			ArmSelection:      cfg.AutoArmSelection,
			DoubleTapInterval: cfg.DoubleTapInterval,
			DoubleTapDistance: cfg.DoubleTapDistance,
		},
		OnPanel: func(st panel.State) { m.onPanel(st) },
		Logger:  log,
	})
	if err != nil {
		slog.Error("create engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()
	m = newModel(eng)

	switch {
	case *doc != "":
		data, err := os.ReadFile(*doc)
		if err == nil {
			err = eng.LoadDocumentJSON(string(data))
		}
		if err != nil {
			slog.Error("load document", "file", *doc, "error", err)
			os.Exit(1)
		}
	case *sample:
		eng.LoadSampleDocument("sess_terminal")
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		slog.Error("run", "error", err)
		os.Exit(1)
	}
}
