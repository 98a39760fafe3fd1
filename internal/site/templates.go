package site

// pageTemplate is the Go html/template for each flow page.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} &middot; {{.ProjectName}}</title>
  <link rel="stylesheet" href="{{.BasePath}}style.css">
</head>
<body>
  <main class="content">
    <nav class="crumbs"><a href="{{.BasePath}}index.html">{{.ProjectName}}</a></nav>
    <article class="page-content">
      {{.Content}}
    </article>
  </main>
</body>
</html>`

// indexTemplate lists flows grouped by the day they were last updated.
const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <main class="content">
    <h1>{{.ProjectName}}</h1>
    {{range .Groups}}
    <section class="date-group">
      <h2>{{.Label}}</h2>
      <ul class="flow-list">
        {{range .Flows}}
        <li>
          <a href="{{.Href}}">{{.Name}}</a>
          {{if .Description}}<p class="flow-desc">{{.Description}}</p>{{end}}
        </li>
        {{end}}
      </ul>
    </section>
    {{end}}
  </main>
</body>
</html>`

// cssContent is the stylesheet shared by all exported pages.
const cssContent = `:root {
  --bg: #ffffff;
  --text: #212529;
  --text-muted: #868e96;
  --border: #dee2e6;
  --accent: #228be6;
  --code-bg: #f1f3f5;
  --content-max-width: 820px;
}

[data-theme="dark"] {
  --bg: #1a1b26;
  --text: #c0caf5;
  --text-muted: #565f89;
  --border: #292e42;
  --accent: #7aa2f7;
  --code-bg: #1f2030;
}

* { box-sizing: border-box; }

body {
  margin: 0;
  background: var(--bg);
  color: var(--text);
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
  line-height: 1.6;
}

.content {
  max-width: var(--content-max-width);
  margin: 0 auto;
  padding: 2rem 1.5rem 4rem;
}

.crumbs {
  margin-bottom: 1.5rem;
  font-size: 0.9rem;
}

.crumbs a {
  color: var(--text-muted);
  text-decoration: none;
}

.crumbs a:hover { color: var(--accent); }

a { color: var(--accent); }

h1, h2, h3 { line-height: 1.25; }

h2 {
  border-bottom: 1px solid var(--border);
  padding-bottom: 0.3rem;
}

.date-group h2 {
  font-size: 1rem;
  color: var(--text-muted);
  text-transform: uppercase;
  letter-spacing: 0.04em;
}

.flow-list {
  list-style: none;
  padding: 0;
}

.flow-list li { margin: 0.75rem 0; }

.flow-list a {
  font-weight: 600;
  text-decoration: none;
}

.flow-list a:hover { text-decoration: underline; }

.flow-desc {
  margin: 0.2rem 0 0;
  color: var(--text-muted);
  font-size: 0.9rem;
}

pre {
  background: var(--code-bg);
  border: 1px solid var(--border);
  border-radius: 6px;
  padding: 0.75rem 1rem;
  overflow-x: auto;
  font-size: 0.875rem;
}

code {
  font-family: "SF Mono", SFMono-Regular, Consolas, "Liberation Mono", monospace;
  font-size: 0.875em;
}

:not(pre) > code {
  background: var(--code-bg);
  border-radius: 4px;
  padding: 0.15em 0.35em;
}

blockquote {
  margin: 1rem 0;
  padding: 0.25rem 1rem;
  border-left: 3px solid var(--border);
  color: var(--text-muted);
}

table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid var(--border);
  padding: 0.4rem 0.75rem;
  text-align: left;
}
`
