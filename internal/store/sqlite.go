package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/storyloom/server/internal/graph"
)

// ErrNotFound is returned when a graph id does not exist.
var ErrNotFound = errors.New("graph not found")

// Store is the graph persistence adapter. The runtime only ever reads
// graphs; writes come from the editor boundary.
type Store struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// Open opens (or creates) the database and runs migrations.
func Open(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS graphs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		doc_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_graphs_project_id ON graphs(project_id);
	CREATE INDEX IF NOT EXISTS idx_graphs_kind ON graphs(kind);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// CreateGraph inserts a graph and returns it with its assigned id.
func (s *Store) CreateGraph(g *graph.Graph) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.Kind == "" {
		g.Kind = graph.KindNarrative
	}

	res, err := s.conn.Exec(`
		INSERT INTO graphs (project_id, kind, title, doc_json)
		VALUES (?, ?, ?, '{}')
	`, g.ProjectID, string(g.Kind), g.Title)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	g.ID = id

	doc, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	_, err = s.conn.Exec(`UPDATE graphs SET doc_json = ? WHERE id = ?`, string(doc), id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGraph loads one graph by id.
func (s *Store) GetGraph(id int64) (*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getGraphLocked(id)
}

func (s *Store) getGraphLocked(id int64) (*graph.Graph, error) {
	var doc string
	err := s.conn.QueryRow(`SELECT doc_json FROM graphs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var g graph.Graph
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("decoding graph %d: %w", id, err)
	}
	g.ID = id
	return &g, nil
}

// ListGraphs returns all graphs in a project, optionally filtered by kind.
func (s *Store) ListGraphs(projectID string, kind graph.Kind) ([]*graph.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT doc_json, id FROM graphs WHERE project_id = ?`
	args := []interface{}{projectID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var graphs []*graph.Graph
	for rows.Next() {
		var doc string
		var id int64
		if err := rows.Scan(&doc, &id); err != nil {
			return nil, err
		}
		var g graph.Graph
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			return nil, fmt.Errorf("decoding graph %d: %w", id, err)
		}
		g.ID = id
		graphs = append(graphs, &g)
	}
	return graphs, rows.Err()
}

// GraphUpdate is a partial update; nil fields are left unchanged.
type GraphUpdate struct {
	Title       *string
	Kind        *graph.Kind
	StartNodeID *string
	EndNodes    *[]graph.EndRef
	Nodes       *[]graph.Node
	Edges       *[]graph.Edge
}

// UpdateGraph applies a partial update and returns the stored result.
func (s *Store) UpdateGraph(id int64, update GraphUpdate) (*graph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.getGraphLocked(id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		g.Title = *update.Title
	}
	if update.Kind != nil {
		g.Kind = *update.Kind
	}
	if update.StartNodeID != nil {
		g.StartNodeID = *update.StartNodeID
	}
	if update.EndNodes != nil {
		g.EndNodes = *update.EndNodes
	}
	if update.Nodes != nil {
		g.Nodes = *update.Nodes
	}
	if update.Edges != nil {
		g.Edges = *update.Edges
	}

	doc, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	_, err = s.conn.Exec(`
		UPDATE graphs SET title = ?, kind = ?, doc_json = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, g.Title, string(g.Kind), string(doc), id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGraph removes a graph.
func (s *Store) DeleteGraph(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(`DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Lookup adapts the store to the composition resolver's callback shape:
// not-found maps to (nil, nil) so the resolver's missing-graph policy
// applies instead of a hard failure.
func (s *Store) Lookup(ctx context.Context, graphID int64) (*graph.Graph, error) {
	g, err := s.GetGraph(graphID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}
