package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"p2pindex/message"
	"p2pindex/servent"
)

const (
	MENU_SEARCH = iota
	MENU_LIST
	MENU_EXIT
)

var menuItems = []string{
	MENU_SEARCH: "Search for files",
	MENU_LIST:   "List shared files",
	MENU_EXIT:   "Exit",
}

const CANCEL_ITEM = "Cancel"

func runMenu(ctx context.Context, node *servent.Servent) {
	for ctx.Err() == nil {
		menu := promptui.Select{
			Label: "Servent " + node.Self().String(),
			Items: menuItems,
		}
		choice, _, err := menu.Run()
		if err != nil {
			// ^C or ^D
			return
		}

		switch choice {
		case MENU_SEARCH:
			searchAndDownload(ctx, node)
		case MENU_LIST:
			names := node.Files().Names()
			if len(names) == 0 {
				fmt.Println("No shared files")
			}
			for _, name := range names {
				fmt.Println(" ", name)
			}
		case MENU_EXIT:
			return
		}
	}
}

func searchAndDownload(ctx context.Context, node *servent.Servent) {
	prompt := promptui.Prompt{Label: "Search query"}
	query, err := prompt.Run()
	if err != nil {
		return
	}

	result := node.Search(ctx, query)
	if len(result) == 0 {
		fmt.Println("No files found")
		return
	}

	items := resultItems(result)
	pick := promptui.Select{
		Label: fmt.Sprintf("%d files found, pick one to download", len(result)),
		Items: items,
		Size:  10,
	}
	choice, _, err := pick.Run()
	if err != nil || choice == len(items)-1 {
		return
	}

	entry := result[choice]
	if len(entry.Peers) == 0 {
		fmt.Println("No peer has", entry.FileName)
		return
	}

	if node.Download(ctx, entry.FileName, entry.Peers[0]) {
		fmt.Printf("Downloaded %s from %s\n", entry.FileName, entry.Peers[0])
	} else {
		fmt.Printf("Download of %s from %s failed\n", entry.FileName, entry.Peers[0])
	}
}

// resultItems lists one line per file followed by a cancel entry.
func resultItems(result message.SearchResult) []string {
	items := make([]string, 0, len(result)+1)
	for _, entry := range result {
		items = append(items, fmt.Sprintf("%s (%d peers)", entry.FileName, len(entry.Peers)))
	}

	return append(items, CANCEL_ITEM)
}

func printSearchResult(w io.Writer, result message.SearchResult) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No files found")
		return
	}

	for _, entry := range result {
		fmt.Fprintf(w, "%s: %s\n", entry.FileName, strings.Join(entry.Peers, ", "))
	}
}
