package store

import (
	"context"
	"fmt"
	"time"
)

const (
	docsPrefix   = "typstgest/docs"
	hashesPrefix = "typstgest/hashes"
)

// Document is a converted document as persisted in the store.
type Document struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename,omitempty"`
	Format        string    `json:"format"`
	Title         string    `json:"title,omitempty"`
	Author        string    `json:"author,omitempty"`
	Hash          string    `json:"hash"`
	Typst         string    `json:"typst"`
	MathSpans     int       `json:"math_spans"`
	MathFallbacks int       `json:"math_fallbacks"`
	CreatedAt     time.Time `json:"created_at"`
}

type hashEntry struct {
	DocID string `json:"doc_id"`
}

func docKey(id string) string { return docsPrefix + "/" + id }
func hashKey(hash string) string { return hashesPrefix + "/" + hash }

// SaveDocument writes doc and indexes it by content hash.
func (c *Client) SaveDocument(ctx context.Context, doc *Document) error {
	if err := c.PutNode(ctx, docKey(doc.ID), NodeRequest{Value: doc, Source: "typstgest"}); err != nil {
		return err
	}
	if doc.Hash == "" {
		return nil
	}
	return c.PutNode(ctx, hashKey(doc.Hash), NodeRequest{Value: hashEntry{DocID: doc.ID}, Source: "typstgest"})
}

// GetDocument returns the document with id, or nil when there is none.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	node, err := c.GetNode(ctx, docKey(id))
	if err != nil || node == nil {
		return nil, err
	}
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentIDByHash returns the ID of a document already converted from
// identical input, or "" if there is none.
func (c *Client) DocumentIDByHash(ctx context.Context, hash string) (string, error) {
	node, err := c.GetNode(ctx, hashKey(hash))
	if err != nil || node == nil {
		return "", err
	}
	var entry hashEntry
	if err := node.Decode(&entry); err != nil {
		return "", err
	}
	return entry.DocID, nil
}

// ListDocuments returns up to limit stored documents.
func (c *Client) ListDocuments(ctx context.Context, limit int) ([]Document, error) {
	nodes, err := c.ListChildren(ctx, docsPrefix, limit)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(nodes))
	for i := range nodes {
		var doc Document
		if err := nodes[i].Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteDocument removes a document and its hash index entry. It reports
// false when the document did not exist.
func (c *Client) DeleteDocument(ctx context.Context, id string) (bool, error) {
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	if doc.Hash != "" {
		if err := c.DeleteNode(ctx, hashKey(doc.Hash), false); err != nil {
			return false, fmt.Errorf("delete hash index: %w", err)
		}
	}
	if err := c.DeleteNode(ctx, docKey(id), true); err != nil {
		return false, err
	}
	return true, nil
}
