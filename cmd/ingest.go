package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/services"
)

func ingestCmd() *cobra.Command {
	var (
		collection string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed documents from a JSON file and store them in the knowledge base",
		Long: `Reads a JSON array of {"content": "...", "metadata": {...}} objects, embeds
them with the configured embedding model and upserts them into a collection.
The collection may be "loteamentos", "construtora" or a table collection name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var docs []services.IngestDocument
			if err := json.Unmarshal(raw, &docs); err != nil {
				return fmt.Errorf("decode %s: %w", file, err)
			}

			store, closeStore, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer closeStore()

			llm := services.NewOpenAIService(cfg.OpenAI, cfg.Knowledge.EmbeddingDimensions)
			ks := services.NewKnowledgeService(llm, store, cfg.Knowledge)

			n, err := ks.Ingest(cmd.Context(), resolveCollection(cfg.Knowledge, collection), docs)
			if err != nil {
				return err
			}
			fmt.Printf("ingested %d documents\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "target collection: loteamentos, construtora or a collection name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the documents")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func resolveCollection(cfg config.KnowledgeConfig, name string) string {
	switch name {
	case "loteamentos":
		return cfg.CollectionLoteamentos
	case "construtora":
		return cfg.CollectionConstrutora
	default:
		return name
	}
}
