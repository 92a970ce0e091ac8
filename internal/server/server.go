// Package server exposes a SPARQL 1.1 Protocol HTTP endpoint plus a
// bulk-upload endpoint and a YASGUI web UI, dispatching queries and
// inserts through a pkg/loomdb.DB.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/loomdb/loomdb/internal/rdfio"
	"github.com/loomdb/loomdb/internal/sparqlexec"
	"github.com/loomdb/loomdb/pkg/loomdb"
	"github.com/loomdb/loomdb/pkg/quadstore"
	"github.com/loomdb/loomdb/pkg/rdf"
)

// Server is the HTTP SPARQL server.
type Server struct {
	db   *loomdb.DB
	addr string
}

// NewServer creates a new SPARQL HTTP server over db.
func NewServer(db *loomdb.DB, addr string) *Server {
	return &Server{db: db, addr: addr}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	mux.HandleFunc("/data", s.handleDataUpload)
	mux.HandleFunc("/", s.handleRoot)

	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting SPARQL endpoint at http://%s/sparql", s.addr)
	return httpServer.ListenAndServe()
}

// quadCount counts every quad currently in the store, across all graphs.
func (s *Server) quadCount() int64 {
	it, err := s.db.Store().QuadsForPattern(nil, nil, nil, quadstore.AnyGraph())
	if err != nil {
		return 0
	}
	defer it.Close()
	var n int64
	for it.Next() {
		n++
	}
	return n
}

// handleRoot provides information about the endpoint.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s/sparql", scheme, r.Host)

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>loomdb SPARQL Endpoint</title>
    <link href="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.css" rel="stylesheet" type="text/css" />
    <script src="https://unpkg.com/@zazuko/yasgui@4.5.0/build/yasgui.min.js"></script>
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: Arial, sans-serif;
            display: flex;
            flex-direction: column;
            height: 100vh;
        }
        .header {
            background: #2c3e50;
            color: white;
            padding: 15px 20px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .header h1 {
            margin: 0;
            font-size: 24px;
            font-weight: 500;
        }
        .header .info {
            margin-top: 5px;
            font-size: 14px;
            opacity: 0.9;
        }
        .header .info code {
            background: rgba(255,255,255,0.2);
            padding: 2px 6px;
            border-radius: 3px;
            font-family: monospace;
        }
        #yasgui {
            flex: 1;
            overflow: hidden;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>loomdb SPARQL Endpoint</h1>
        <div class="info">
            Endpoint: <code>` + endpointURL + `</code> |
            Total quads: <strong>` + fmt.Sprintf("%d", s.quadCount()) + `</strong>
        </div>
    </div>
    <div id="yasgui"></div>
    <script>
        const yasgui = new Yasgui(document.getElementById("yasgui"), {
            requestConfig: {
                endpoint: "` + endpointURL + `",
                method: "POST"
            },
            copyEndpointOnNewTab: false,
            endpointCatalogueOptions: {
                getData: function() {
                    return [
                        {
                            endpoint: "` + endpointURL + `",
                            label: "loomdb Local"
                        }
                    ];
                }
            }
        });
    </script>
</body>
</html>`

	_, _ = w.Write([]byte(html)) // #nosec G104
}

// handleSPARQL handles SPARQL query requests according to the SPARQL 1.1
// Protocol: https://www.w3.org/TR/sparql11-protocol/
func (s *Server) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var queryString string

	switch r.Method {
	case "GET":
		queryString = r.URL.Query().Get("query")
		if queryString == "" {
			s.writeError(w, http.StatusBadRequest, "Missing 'query' parameter")
			return
		}

	case "POST":
		contentType := r.Header.Get("Content-Type")

		switch {
		case strings.Contains(contentType, "application/sparql-query"):
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			queryString = string(body)

		case strings.Contains(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to parse form")
				return
			}
			queryString = r.FormValue("query")
			if queryString == "" {
				s.writeError(w, http.StatusBadRequest, "Missing 'query' parameter")
				return
			}

		default:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			queryString = string(body)
		}

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET or POST")
		return
	}

	if queryString == "" {
		s.writeError(w, http.StatusBadRequest, "Empty query")
		return
	}

	result, err := s.db.Query(queryString, "")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Query error: %v", err))
		return
	}

	format := s.negotiateFormat(r.Header.Get("Accept"))
	s.writeResult(w, result, format)
}

// negotiateFormat determines the response format based on the Accept header.
func (s *Server) negotiateFormat(acceptHeader string) string {
	accept := strings.ToLower(acceptHeader)

	if strings.Contains(accept, "application/sparql-results+xml") {
		return "xml"
	}
	if strings.Contains(accept, "application/sparql-results+json") {
		return "json"
	}
	if strings.Contains(accept, "application/json") {
		return "json"
	}
	if strings.Contains(accept, "text/xml") || strings.Contains(accept, "application/xml") {
		return "xml"
	}

	return "json"
}

// writeResult writes the query result in the given format.
func (s *Server) writeResult(w http.ResponseWriter, result sparqlexec.Result, format string) {
	var data []byte
	var err error
	var contentType string

	if constructResult, ok := result.(*sparqlexec.ConstructResult); ok {
		contentType = "application/n-triples; charset=utf-8"
		data, err = FormatConstructResultNTriples(constructResult)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data) // #nosec G104
		return
	}

	switch format {
	case "xml":
		contentType = "application/sparql-results+xml; charset=utf-8"
		if selectResult, ok := result.(*sparqlexec.SelectResult); ok {
			data, err = FormatSelectResultsXML(selectResult)
		} else if askResult, ok := result.(*sparqlexec.AskResult); ok {
			data, err = FormatAskResultXML(askResult)
		}

	default: // json
		contentType = "application/sparql-results+json; charset=utf-8"
		if selectResult, ok := result.(*sparqlexec.SelectResult); ok {
			data, err = FormatSelectResultsJSON(selectResult)
		} else if askResult, ok := result.(*sparqlexec.AskResult); ok {
			data, err = FormatAskResultJSON(askResult)
		}
	}

	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data) // #nosec G104
}

var contentTypeToSyntax = map[string]rdfio.Syntax{
	"application/n-triples": rdfio.NTriples,
	"text/plain":            rdfio.NTriples,
	"application/n-quads":   rdfio.NQuads,
	"text/turtle":           rdfio.Turtle,
	"application/x-turtle":  rdfio.Turtle,
	"application/trig":      rdfio.TriG,
	"application/rdf+xml":   rdfio.RdfXML,
}

// handleDataUpload handles bulk data uploads in any of the loader's
// supported RDF serializations, inserting the parsed quads/triples
// straight into the store.
func (s *Server) handleDataUpload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != "POST" {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use POST")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	syntax, ok := contentTypeToSyntax[contentType]
	if !ok {
		s.writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported content type: %s. Supported types: %v", contentType, supportedContentTypes()))
		return
	}

	graphParam := r.URL.Query().Get("graph")

	startTime := time.Now()
	var count int
	var loadErr error
	switch syntax {
	case rdfio.NQuads, rdfio.TriG:
		quads, err := rdfio.ParseDataset(r.Body, syntax, "")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
			return
		}
		count = len(quads)
		loadErr = insertQuads(s.db, quads)
	default:
		var target *rdf.NamedNode
		if graphParam != "" {
			target = rdf.NewNamedNode(graphParam)
		}
		triples, err := rdfio.ParseGraph(r.Body, syntax, "")
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Parse error: %v", err))
			return
		}
		count = len(triples)
		loadErr = insertTriples(s.db, triples, target)
	}

	if loadErr != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Insert error: %v", loadErr))
		return
	}

	duration := time.Since(startTime)

	response := map[string]interface{}{
		"success": true,
		"statistics": map[string]interface{}{
			"quadsInserted":  count,
			"durationMs":     duration.Milliseconds(),
			"quadsPerSecond": float64(count) / duration.Seconds(),
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response) // #nosec G104
}

func supportedContentTypes() []string {
	types := make([]string, 0, len(contentTypeToSyntax))
	for ct := range contentTypeToSyntax {
		types = append(types, ct)
	}
	return types
}

func insertQuads(db *loomdb.DB, quads []*rdf.Quad) error {
	return db.Store().Transaction(func(tx *quadstore.Tx) error {
		for _, q := range quads {
			tx.Insert(q)
		}
		return nil
	})
}

func insertTriples(db *loomdb.DB, triples []*rdf.Triple, graph *rdf.NamedNode) error {
	var g rdf.Term = rdf.NewDefaultGraph()
	if graph != nil {
		g = graph
	}
	return db.Store().Transaction(func(tx *quadstore.Tx) error {
		for _, t := range triples {
			tx.Insert(rdf.NewQuad(t.Subject, t.Predicate, t.Object, g))
		}
		return nil
	})
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	log.Printf("Error: %s", message)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":%d,"message":"%s"}}`, statusCode, message))) // #nosec G104
}
