package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the semantic models in the catalog",
	Long: `List the semantic models in the catalog.

The first entry is the default; pass --model to select another.`,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	for i, path := range catalog.Models {
		marker := " "
		if path == modelPath {
			marker = "*"
		}
		fmt.Printf("%s %d. %s\n", marker, i+1, config.ModelName(path))
		fmt.Printf("     %s\n", defaultTheme.hintStyle().Render(path))
	}
	return nil
}
