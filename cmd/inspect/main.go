// Command inspect dumps the contents of a BadgerDB store as tables, for
// poking at a live data directory during development.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "group:", "Prefix to scan (group:, msg:, user:, profile:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headersFor(*prefix))
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				row, err := rowFor(*prefix, key, v)
				if err != nil {
					// Keep scanning; one bad record should not stop the dump.
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	table.Render()
}

func headersFor(prefix string) []string {
	switch prefix {
	case "msg:":
		return []string{"Key", "Group", "Author", "Text", "Seq", "At"}
	case "user:":
		return []string{"Key", "ID", "Username", "Email", "Created"}
	case "profile:":
		return []string{"Key", "User", "Photo", "Age"}
	default:
		return []string{"Key", "ID", "Name", "Members", "Created"}
	}
}

func rowFor(prefix, key string, value []byte) ([]string, error) {
	format := func(nanos int64) string {
		return time.Unix(0, nanos).UTC().Format(time.RFC3339)
	}
	switch prefix {
	case "msg:":
		var record struct {
			ID       string `cbor:"id"`
			GroupID  string `cbor:"group_id"`
			AuthorID string `cbor:"author_id"`
			Text     string `cbor:"text,omitempty"`
			Seq      uint64 `cbor:"seq"`
			At       int64  `cbor:"at"`
		}
		if err := cbor.Unmarshal(value, &record); err != nil {
			return nil, err
		}
		return []string{key, record.GroupID, record.AuthorID, record.Text,
			fmt.Sprintf("%d", record.Seq), format(record.At)}, nil
	case "user:":
		var record struct {
			ID        string `cbor:"id"`
			Username  string `cbor:"username"`
			Email     string `cbor:"email"`
			CreatedAt int64  `cbor:"created_at"`
		}
		if err := cbor.Unmarshal(value, &record); err != nil {
			return nil, err
		}
		return []string{key, record.ID, record.Username, record.Email, format(record.CreatedAt)}, nil
	case "profile:":
		var record struct {
			UserID    string `cbor:"user_id"`
			PhotoPath string `cbor:"photo_path"`
			Age       int    `cbor:"age"`
		}
		if err := cbor.Unmarshal(value, &record); err != nil {
			return nil, err
		}
		return []string{key, record.UserID, record.PhotoPath, fmt.Sprintf("%d", record.Age)}, nil
	default:
		var record struct {
			ID        string   `cbor:"id"`
			Name      string   `cbor:"name"`
			Members   []string `cbor:"members"`
			CreatedAt int64    `cbor:"created_at"`
		}
		if err := cbor.Unmarshal(value, &record); err != nil {
			return nil, err
		}
		return []string{key, record.ID, record.Name,
			fmt.Sprintf("%d", len(record.Members)), format(record.CreatedAt)}, nil
	}
}
