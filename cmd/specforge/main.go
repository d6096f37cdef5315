// cmd/specforge/main.go
//
// Inspection commands for the refinement engine's on-disk state: list
// documents, show a committed version, and work the question ledger. The
// generator-driven steps live behind the session API and are not exposed
// here.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mknox/specforge/internal/config"
	"github.com/mknox/specforge/internal/document"
	"github.com/mknox/specforge/internal/ledger"
	"github.com/mknox/specforge/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		fatal(err)
	}
	if err := config.InitDataDir(cfg.Root); err != nil {
		fatal(err)
	}
	st := store.New(cfg.DocumentsDir())

	switch os.Args[1] {
	case "list":
		err = runList(st)
	case "show":
		err = runShow(st, os.Args[2:])
	case "questions":
		err = runQuestions(st, os.Args[2:])
	case "answer":
		err = runAnswer(st, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func runList(st *store.Store) error {
	metas, err := st.Documents()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no documents")
		return nil
	}
	for _, meta := range metas {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %s\n", meta.ID, title)
		infos, err := st.List(meta.ID)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("  v%d  %s  %s\n", info.Number, info.CreatedAt.Format("2006-01-02 15:04"), info.Model)
		}
	}
	return nil
}

func runShow(st *store.Store, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: specforge show <document> [version]")
	}
	var (
		version document.Version
		err     error
	)
	if len(args) >= 2 {
		number, convErr := strconv.Atoi(strings.TrimPrefix(args[1], "v"))
		if convErr != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		version, err = st.Read(args[0], number)
	} else {
		version, err = st.Latest(args[0])
	}
	if err != nil {
		return err
	}
	fmt.Print(version.Content)
	return nil
}

func runQuestions(st *store.Store, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: specforge questions <document>")
	}
	records, err := st.LoadLedger(args[0])
	if err != nil {
		return err
	}
	led := ledger.FromRecords(records)
	if led.Len() == 0 {
		fmt.Println("no questions recorded")
		return nil
	}
	for _, record := range led.All() {
		status := "open"
		if record.Answered() {
			status = "answered"
		}
		fmt.Printf("%s  [%s] (%s/%s) %s\n", record.ID, status, record.Section, record.Importance, record.Text)
		if record.Answered() {
			fmt.Printf("    A: %s\n", record.Answer)
		}
	}
	return nil
}

func runAnswer(st *store.Store, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: specforge answer <document> <question-id> <answer...>")
	}
	records, err := st.LoadLedger(args[0])
	if err != nil {
		return err
	}
	led := ledger.FromRecords(records)
	if err := led.Answer(args[1], strings.Join(args[2:], " ")); err != nil {
		return err
	}
	return st.SaveLedger(args[0], led.All())
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: specforge <list|show|questions|answer> [args]")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "specforge: %v\n", err)
	os.Exit(1)
}
