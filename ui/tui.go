package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UIState represents the aggregated state for the TUI
type UIState struct {
	TotalIterations     int64
	CompletedIterations int64
	CompletedBytes      int64
	Mismatches          int64
	ActiveRegions       []*ActiveRegion
	ActiveWorkers       int
	MaxWorkers          int
	IterationsPerMs     float64 // completed iterations per millisecond
	IsRunning           bool
	Done                bool
}

// ActiveRegion represents a region job currently being stressed
type ActiveRegion struct {
	JobID    string
	Region   int
	Pattern  string
	Progress float64 // 0.0 to 1.0
	BytesSec float64 // bytes per second for this region
}

// TUIModel implements the tea.Model interface
type TUIModel struct {
	engineState *UIState
	spinner     spinner.Model
	progress    progress.Model
	viewport    viewport.Model

	// OnWorkerChange, if set, is called with +1/-1 when the user adjusts the
	// worker count from the keyboard.
	OnWorkerChange func(delta int)

	width  int
	height int

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	regionStyle  lipgloss.Style
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
}

// TUIUpdateMsg is sent periodically to update the UI state
type TUIUpdateMsg struct {
	State *UIState
}

// WorkerCountMsg is sent when modifying the worker count
type WorkerCountMsg int

func NewTUIModel(initialState *UIState) TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return TUIModel{
		engineState:  initialState,
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		regionStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m TUIModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
	)
}

func (m TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.engineState.IsRunning = false
			return m, tea.Quit
		case "+", "=":
			// Increase workers
			return m, func() tea.Msg { return WorkerCountMsg(1) }
		case "-":
			// Decrease workers
			return m, func() tea.Msg { return WorkerCountMsg(-1) }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 6
		footerHeight := 2
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)

	case TUIUpdateMsg:
		m.engineState = msg.State
		if m.engineState.Done {
			return m, tea.Quit
		}

	case WorkerCountMsg:
		if m.OnWorkerChange != nil {
			m.OnWorkerChange(int(msg))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m TUIModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	// Header
	header := fmt.Sprintf("%s Memstress %s", m.spinner.View(), m.titleStyle.Render("Memory Stress Engine"))
	sb.WriteString(header + "\n")

	// Global Progress
	var percent float64 = 0
	if m.engineState.TotalIterations > 0 {
		percent = float64(m.engineState.CompletedIterations) / float64(m.engineState.TotalIterations)
	}

	movedGB := float64(m.engineState.CompletedBytes) / (1024 * 1024 * 1024)

	opsInfo := fmt.Sprintf("ETA: %s | Workers: %d/%d | %d/%d iterations | %.2f GB moved",
		formatETA(percent, m.engineState.IterationsPerMs, m.engineState.TotalIterations, m.engineState.CompletedIterations),
		m.engineState.ActiveWorkers, m.engineState.MaxWorkers,
		m.engineState.CompletedIterations, m.engineState.TotalIterations,
		movedGB)

	sb.WriteString(m.infoStyle.Render(opsInfo) + "\n")

	// Mismatch line is the headline of this tool: green until it isn't.
	if m.engineState.Mismatches > 0 {
		sb.WriteString(m.errorStyle.Render(fmt.Sprintf("MISMATCHES: %d", m.engineState.Mismatches)) + "\n")
	} else {
		sb.WriteString(m.successStyle.Render("No mismatches") + "\n")
	}

	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	// Active Regions
	sb.WriteString("Active Regions:\n")
	var regionContent strings.Builder

	if len(m.engineState.ActiveRegions) == 0 {
		regionContent.WriteString(m.infoStyle.Render("No active regions..."))
	} else {
		for _, r := range m.engineState.ActiveRegions {
			speedStr := formatSpeed(r.BytesSec)
			bar := m.progress.ViewAs(r.Progress)

			// Format: [===       ] 30% | 4.5 GB/s | region 3 (walking-bit)
			regionContent.WriteString(fmt.Sprintf("%s | %-10s | region %d (%s)\n",
				bar, m.regionStyle.Render(speedStr), r.Region, r.Pattern))
		}
	}

	m.viewport.SetContent(regionContent.String())
	sb.WriteString(m.viewport.View())

	// Footer
	help := m.helpStyle.Render("q/ctrl+c: quit • +/-: adjust workers")
	if m.engineState.Done {
		if m.engineState.Mismatches > 0 {
			help = m.errorStyle.Render(fmt.Sprintf("Run complete: %d mismatches.", m.engineState.Mismatches)) + " Press 'q' to exit."
		} else {
			help = m.successStyle.Render("Run complete: memory clean.") + " Press 'q' to exit."
		}
	}
	sb.WriteString("\n" + help)

	return sb.String()
}

func formatSpeed(bytesPerSec float64) string {
	if bytesPerSec >= 1024*1024*1024 {
		return fmt.Sprintf("%.2f GB/s", bytesPerSec/(1024*1024*1024))
	} else if bytesPerSec >= 1024*1024 {
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	} else if bytesPerSec >= 1024 {
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

func formatETA(progress float64, iterationsPerMs float64, totalIterations, completedIterations int64) string {
	if progress == 0 || iterationsPerMs <= 0 || totalIterations == 0 {
		return "Calculating..."
	}

	remaining := totalIterations - completedIterations
	if remaining <= 0 {
		return "0s"
	}

	remainingMs := float64(remaining) / iterationsPerMs
	d := time.Duration(remainingMs) * time.Millisecond

	if d.Hours() > 24 {
		return "> 1d"
	}

	return d.Round(time.Second).String()
}
