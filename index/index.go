package index

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
)

const defaultIndexPath = "gallery.bleve"

// Item is the per-gallery record the search command indexes. By
// default every field here is searchable by its JSON tag
// (e.g. '+pages:>100' or '+title:landscape').
type Item struct {
	ID        string    `json:"id"`    // gid as a string, the index document key
	GID       uint64    `json:"gid"`
	Token     string    `json:"token"`
	Title     string    `json:"title,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Pages     uint32    `json:"pages"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ItemID derives the document id for a gallery record.
func ItemID(gid uint64) string {
	return strconv.FormatUint(gid, 10)
}

// OpenOrCreateIndex opens an existing Bleve index or creates a new one if it doesn't exist.
func OpenOrCreateIndex(indexPath string) (bleve.Index, error) {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}

	idx, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		log.Printf("Creating new index at: %s", indexPath)
		mapping := bleve.NewIndexMapping()
		idx, err = bleve.New(indexPath, mapping)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		log.Printf("Opened existing index at: %s", indexPath)
	}
	return idx, nil
}

// IndexItem adds or updates a gallery record in the Bleve index.
func IndexItem(idx bleve.Index, item Item) error {
	return idx.Index(item.ID, item)
}

// SearchIndex performs a search query against the index.
func SearchIndex(idx bleve.Index, query string) (*bleve.SearchResult, error) {
	searchQuery := bleve.NewQueryStringQuery(query)
	searchRequest := bleve.NewSearchRequest(searchQuery)
	searchRequest.Fields = []string{"*"}
	return idx.Search(searchRequest)
}

// DeleteIndex removes the index directory. Use with caution!
func DeleteIndex(indexPath string) error {
	if indexPath == "" {
		indexPath = defaultIndexPath
	}
	log.Printf("Attempting to delete index at: %s", indexPath)
	return os.RemoveAll(indexPath)
}
