package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed censored/*.txt
var censoredFolder embed.FS

// LoadWords reads the embedded wordlists, one word per line, ignoring
// blanks and # comments, and deduplicates across files.
func LoadWords() ([]string, error) {
	seen := make(map[string]struct{})
	var words []string

	err := fs.WalkDir(censoredFolder, "censored", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		file, err := censoredFolder.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			words = append(words, word)
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}
