package cli

const rootLong = `dataapi serves filtered statistics observations and their footnotes.

Configuration is read from ./dataapi.yaml (or --config), DATAAPI_* environment
variables and flags, in increasing order of precedence.

BACKENDS
  sqlite    single file database (default; driver sqlite or sqlite3)
  postgres  PostgreSQL schema selected by --pg-schema`

const rootExample = `  dataapi migrate up --sqlite-path stats.db
  dataapi import --publish 1 release.yaml
  dataapi query observations --subject 3 --level "Local authority" --from 2016_AY --items 1000,1001
  dataapi serve --addr :8080`
