package handlers

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/heat"
	"topicmon/internal/persistence"
	"topicmon/internal/render"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	hotStyle    = cellStyle.Foreground(lipgloss.Color("203"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewShowCmd creates the command that prints saved heat scores
func NewShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the ranked topics of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, date, err := slotAndDate(cmd)
			if err != nil {
				return err
			}
			top, _ := cmd.Flags().GetInt("top")

			scores, err := persistence.NewFileStore(config.Get().App.DataDir).LoadHeatScores(resolveDate(date), slot)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScores(scores, slot, top))
			return nil
		},
	}

	addSlotFlags(showCmd, "run date YYYY-MM-DD (default today)")
	showCmd.Flags().Int("top", 0, "Show only the first N topics (default all)")
	return showCmd
}

// renderScores formats heat scores as a styled table.
func renderScores(scores *persistence.HeatScores, slot core.TimeSlot, top int) string {
	topics := scores.Topics
	if top > 0 {
		topics = heat.TopN(topics, top)
	}

	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{
			strconv.Itoa(t.Rank),
			t.CanonicalName,
			t.Category,
			fmt.Sprintf("%.1f", t.HeatScore),
			strconv.Itoa(t.TotalMentions),
			render.DepthStars(t.AvgDepth),
		})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("#", "Topic", "Category", "Heat", "Mentions", "Depth").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && row < len(topics) && topics[row].HeatScore >= 60:
				return hotStyle
			default:
				return cellStyle
			}
		})

	title := titleStyle.Render(fmt.Sprintf("🔥 %s · %s", scores.Timestamp, slot.Label()))
	footer := mutedStyle.Render(fmt.Sprintf("%d topics from %d articles", scores.TotalTopics, scores.TotalArticles))
	return lipgloss.JoinVertical(lipgloss.Left, title, tbl.Render(), footer)
}
