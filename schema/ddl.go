package schema

import "strings"

// DDL returns the statements creating the schema, tables in creation order.
func (s *Schema) DDL(d Dialect) []string {
	var stmts []string

	if s.Namespace != "" {
		if stmt := d.createNamespace(s.Namespace); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	for _, t := range s.Tables() {
		stmts = append(stmts, t.CreateStatement(d))
		stmts = append(stmts, t.commentStatements(d)...)
	}

	return stmts
}

// CreateStatement renders CREATE TABLE IF NOT EXISTS for the table.
func (t *Table) CreateStatement(d Dialect) string {
	var defs []string

	for _, c := range t.Columns {
		defs = append(defs, columnDef(d, c))
	}

	if len(t.Unique) > 0 {
		quoted := make([]string, len(t.Unique))
		for i, name := range t.Unique {
			quoted[i] = d.Quote(name)
		}

		defs = append(defs, "UNIQUE ("+strings.Join(quoted, ", ")+")")
	}

	for _, c := range t.Columns {
		if c.References == nil {
			continue
		}

		fk := "FOREIGN KEY (" + d.Quote(c.Name) + ") REFERENCES " +
			d.Table(c.References.Namespace, c.References.Table) + " (" + d.Quote(IdentColumn) + ")"
		if c.References.Cascade {
			fk += " ON UPDATE CASCADE ON DELETE CASCADE"
		}

		defs = append(defs, fk)
	}

	return "CREATE TABLE IF NOT EXISTS " + d.Table(t.Namespace, t.Name) + " (\n\t" +
		strings.Join(defs, ",\n\t") + "\n)"
}

func columnDef(d Dialect, c *Column) string {
	parts := []string{d.Quote(c.Name), d.columnType(c)}

	switch {
	case c.PrimaryKey:
		parts = append(parts, d.primaryKey(c.AutoIncrement))
	case !c.Nullable:
		parts = append(parts, "NOT NULL")
	}

	if c.Unique && !c.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}

	if c.Comment != "" {
		if comment := d.inlineComment(c.Comment); comment != "" {
			parts = append(parts, comment)
		}
	}

	return strings.Join(parts, " ")
}

// commentStatements renders column comments for dialects without inline comments.
func (t *Table) commentStatements(d Dialect) []string {
	if d != Postgres {
		return nil
	}

	var stmts []string

	for _, c := range t.Columns {
		if c.Comment == "" {
			continue
		}

		stmts = append(stmts, "COMMENT ON COLUMN "+d.Table(t.Namespace, t.Name)+"."+d.Quote(c.Name)+
			" IS "+quoteLiteral(c.Comment))
	}

	return stmts
}

// Script joins statements into one SQL script.
func Script(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}

	return strings.Join(stmts, ";\n\n") + ";\n"
}

// SplitStatements splits a SQL script on semicolons outside of quotes and
// comments. Empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
		quote rune
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}

		cur.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case quote != 0:
			cur.WriteRune(r)

			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}

			cur.WriteRune('\n')
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}

	flush()

	return stmts
}
