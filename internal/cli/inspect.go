package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/chunksplit/pkg/manifest"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "inspect <manifest.json>",
		Short: "Browse the chunks of a manifest",
		Long: `Inspect opens an interactive browser over a manifest written by build.
Use the arrow keys to move between chunks and enter to list a chunk's members.

With --plain the chunks and their members are printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.ReadFile(args[0])
			if err != nil {
				return err
			}
			if plain {
				fmt.Print(plainManifest(m))
				return nil
			}
			_, err = tea.NewProgram(NewManifestModel(m), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print instead of opening the browser")
	return cmd
}

// =============================================================================
// ManifestModel - Interactive chunk browser
// =============================================================================

// ManifestModel is the bubbletea model for browsing a manifest.
type ManifestModel struct {
	Manifest manifest.Manifest
	Names    []string
	Cursor   int
	Offset   int
	Height   int
	// Open is the chunk whose members are shown, or "" for none.
	Open string
}

// NewManifestModel creates a browser over m.
func NewManifestModel(m manifest.Manifest) ManifestModel {
	return ManifestModel{
		Manifest: m,
		Names:    m.Names(),
		Height:   15,
	}
}

func (m ManifestModel) Init() tea.Cmd {
	return nil
}

func (m ManifestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Open == "" {
				return m, tea.Quit
			}
			m.Open = ""
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Names)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			if len(m.Names) == 0 {
				return m, nil
			}
			name := m.Names[m.Cursor]
			if m.Open == name {
				m.Open = ""
			} else {
				m.Open = name
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height/2 - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ManifestModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Chunks"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %s", plural(len(m.Names), "chunk"), plural(m.Manifest.ModuleCount(), "module"))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ members  esc close  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Names) {
		end = len(m.Names)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		name := m.Names[i]
		ch := m.Manifest[name]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, name, strconv.Itoa(len(ch.Members)), ch.File})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Chunk", "Modules", "File").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 2 || col == 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Names))))
	b.WriteString("\n")

	if m.Open != "" {
		ch := m.Manifest[m.Open]
		b.WriteString("\n")
		b.WriteString(listSelectedStyle.Render(m.Open))
		b.WriteString(" ")
		b.WriteString(listDimStyle.Render(ch.File))
		b.WriteString("\n")
		for _, id := range ch.Members {
			b.WriteString("  ")
			b.WriteString(listNormalStyle.Render(truncate(id, 100)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// plainManifest lists every chunk followed by its members.
func plainManifest(m manifest.Manifest) string {
	var b strings.Builder
	b.WriteString(manifestTable(m))
	b.WriteString("\n")
	for _, name := range m.Names() {
		ch := m[name]
		b.WriteString("\n")
		b.WriteString(StyleTitle.Render(name))
		b.WriteString(" ")
		b.WriteString(StyleDim.Render(ch.File))
		b.WriteString("\n")
		for _, id := range ch.Members {
			b.WriteString("  " + id + "\n")
		}
	}
	return b.String()
}

var _ tea.Model = ManifestModel{}
