package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nanlog/internal/archive"
	"nanlog/internal/board"
)

var (
	archiveName   string
	archiveRender bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Store and browse converted games",
	Long: `Games are kept in a SQLite database (archive.path in the config, or
NAN_ARCHIVE_PATH).`,
}

var archiveAddCmd = &cobra.Command{
	Use:   "add <game.nan|replay.json|game.log>",
	Short: "Convert (if needed) and store a game",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveAdd,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived games",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived game's NAN",
	Long:  `Prints the NAN of one game. The id may be shortened to any unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

func init() {
	archiveAddCmd.Flags().StringVar(&archiveName, "name", "", "Game name (default: file name)")
	archiveShowCmd.Flags().BoolVar(&archiveRender, "render", false, "Print the final board instead of NAN")

	archiveCmd.AddCommand(archiveAddCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
}

func openArchive() (*archive.Store, error) {
	return archive.Open(currentConfig().Archive.Path)
}

func runArchiveAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	text, err := sourceToNAN(path, currentConfig())
	if err != nil {
		return err
	}

	name := archiveName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	g, lineErrs, err := store.Save(commandContext(cmd), name, path, text)
	if err != nil {
		return err
	}
	for _, e := range lineErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d turns\n", g.ID, g.Name, g.Turns)
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.List(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived games.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTURNS\tSCORE\tCREATED")
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d-%d\t%s\n",
			shortID(g.ID), g.Name, g.Turns, g.CorpScore, g.RunnerScore, g.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := store.Load(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if archiveRender {
		b := board.New()
		b.ApplyAll(g.Records)
		return writeBoard(cmd.OutOrStdout(), b, "text")
	}
	printNAN(cmd.OutOrStdout(), g.NAN)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
