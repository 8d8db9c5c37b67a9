package gateway

import (
	"html/template"
	"net/http"
)

// graphiqlPage is the interactive explorer, loading GraphiQL from a CDN and
// pointing it at the schema's own endpoint.
var graphiqlPage = template.Must(template.New("graphiql").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>GraphiQL - {{.Schema}}</title>
  <style>
    body { margin: 0; height: 100vh; }
    #graphiql { height: 100vh; }
  </style>
  <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
</head>
<body>
  <div id="graphiql">Loading…</div>
  <script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
  <script>
    const fetcher = GraphiQL.createFetcher({ url: '/graphql/{{.Schema}}/' });
    ReactDOM.createRoot(document.getElementById('graphiql')).render(
      React.createElement(GraphiQL, { fetcher: fetcher })
    );
  </script>
</body>
</html>
`))

func (v *View) serveGraphiQL(w http.ResponseWriter, schemaName string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := graphiqlPage.Execute(w, map[string]string{"Schema": schemaName}); err != nil {
		v.logger.Error().Err(err).Msg("failed to render graphiql page")
	}
}
