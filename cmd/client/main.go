package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tkorchagin/namelink/internal/account"
	"github.com/tkorchagin/namelink/internal/client/api"
	"github.com/tkorchagin/namelink/internal/identity"
	"github.com/tkorchagin/namelink/internal/username"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive shell loop, accepting commands to manage the
// account's username and link.
func repl(ctx context.Context, mgr *identity.Manager, store *account.FileStore) {
	scanner := bufio.NewScanner(os.Stdin)
	var reserved *identity.Reserved

	for {
		fmt.Print("namelink> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, reserve <nickname> [discriminator], confirm, rename <username>, rotate, link, resolve <link>, lookup <username>, status, delete, exit")
		case "reserve":
			if len(args) < 2 {
				fmt.Println("Usage: reserve <nickname> [discriminator]")
				continue
			}
			discriminator := ""
			if len(args) > 2 {
				discriminator = args[2]
			}
			res, err := mgr.Reserve(ctx, args[1], discriminator)
			if err != nil {
				fmt.Println("Reservation failed:", err)
				continue
			}
			reserved = &res
			fmt.Printf("Reserved %s; run 'confirm' to claim it\n", res.Username)
		case "confirm":
			if reserved == nil {
				fmt.Println("Nothing reserved; run 'reserve' first")
				continue
			}
			if err := mgr.ConfirmAndCreateLink(ctx, reserved.Username); err != nil {
				fmt.Println("Confirmation failed:", err)
				if errors.Is(err, api.ErrReservationInvalid) || errors.Is(err, api.ErrUsernameGone) {
					fmt.Println("Reservation is no longer valid; reserve again")
					reserved = nil
				}
				continue
			}
			fmt.Printf("Username %s confirmed\n", reserved.Username)
			reserved = nil
			printLink(ctx, mgr)
		case "rename":
			if len(args) < 2 {
				fmt.Println("Usage: rename <nickname.discriminator>")
				continue
			}
			u, err := username.Parse(args[1])
			if err != nil {
				fmt.Println("Invalid username:", err)
				continue
			}
			if err := mgr.UpdateDisplayCasing(ctx, u); err != nil {
				fmt.Println("Rename failed:", err)
				continue
			}
			fmt.Println("Display name updated; existing link still works")
		case "rotate":
			if _, err := mgr.CreateOrResetLink(ctx); err != nil {
				fmt.Println("Rotation failed:", err)
				continue
			}
			fmt.Println("Link rotated; previously shared links are now dead")
			printLink(ctx, mgr)
		case "link":
			printLink(ctx, mgr)
		case "resolve":
			if len(args) < 2 {
				fmt.Println("Usage: resolve <link>")
				continue
			}
			res, err := mgr.ResolveLink(ctx, args[1])
			switch {
			case err == nil:
				fmt.Printf("%s belongs to account %s\n", res.Username, res.AccountID)
			case errors.Is(err, username.ErrLinkInvalid):
				fmt.Println("That is not a valid username link")
			case errors.Is(err, api.ErrNotFound):
				if res.Username != "" {
					fmt.Printf("Link decrypts to %s, but nobody owns that username anymore\n", res.Username)
				} else {
					fmt.Println("Link not found")
				}
			default:
				fmt.Println("Network error:", err)
			}
		case "lookup":
			if len(args) < 2 {
				fmt.Println("Usage: lookup <nickname.discriminator>")
				continue
			}
			accountID, err := mgr.LookupByUsername(ctx, args[1])
			switch {
			case err == nil:
				fmt.Printf("%s belongs to account %s\n", args[1], accountID)
			case errors.Is(err, api.ErrNotFound):
				fmt.Println("No account owns that username")
			default:
				fmt.Println("Lookup failed:", err)
			}
		case "status":
			rec, err := store.Load(ctx)
			if err != nil {
				fmt.Println("Failed to load local state:", err)
				continue
			}
			fmt.Printf("Username: %s\nSync state: %s (mismatches: %d)\nNeeds restore: %v\n",
				cmpOr(rec.Username, "<unset>"), rec.SyncState, rec.MismatchCount, rec.NeedsRestore)
			printLink(ctx, mgr)
		case "delete":
			if err := mgr.DeleteUsernameAndLink(ctx); err != nil {
				fmt.Println("Deletion failed:", err)
				continue
			}
			fmt.Println("Username and link deleted")
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command; type 'help'")
		}
	}
}

func printLink(ctx context.Context, mgr *identity.Manager) {
	link, err := mgr.FormatCurrentLink(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoLink) {
			fmt.Println("No link set")
		} else {
			fmt.Println("Failed to format link:", err)
		}
		return
	}
	fmt.Println("Share link:", link)
}

func cmpOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func main() {
	serverURL := flag.String("s", "http://localhost:8080", "directory server URL")
	accountFlag := flag.String("a", "", "account id (UUID); generated when empty")
	storePath := flag.String("f", "namelink.json", "local account state file")
	origin := flag.String("o", "", "link origin override")
	flag.Parse()

	fmt.Printf("Build version: %s\n", cmpOr(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmpOr(buildDate, "N/A"))

	accountID := uuid.New()
	if *accountFlag != "" {
		parsed, err := uuid.Parse(*accountFlag)
		if err != nil {
			log.Fatalf("invalid account id: %v", err)
		}
		accountID = parsed
	}

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	store := account.NewFileStore(*storePath)
	client := api.NewHTTPClient(*serverURL, accountID, &http.Client{Timeout: 15 * time.Second})
	mgr := identity.NewManager(store, client, zapLogger, *origin)

	ctx := context.Background()

	// Cold-start reclaim: re-assert a restored identity before the user
	// starts issuing commands.
	switch result, err := mgr.ReclaimIfNecessary(ctx); {
	case err != nil:
		fmt.Println("Reclaim could not run:", err)
	case result == identity.ReclaimPermanentError:
		fmt.Println("Your username could not be restored; you will need to claim a new one")
	case result == identity.ReclaimNetworkError:
		fmt.Println("Could not reach the server to restore your username; will retry next start")
	}

	repl(ctx, mgr, store)
}
