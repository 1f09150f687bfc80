package anonymize

import "fmt"

// ClickHouseStatements returns lambda UDF definitions equivalent to the
// DuckDB scalar functions. generate_data has no ClickHouse counterpart.
// Server-side randomness does not honour Config.Seed.
func (ext *Extension) ClickHouseStatements() []string {
	return []string{
		`CREATE FUNCTION IF NOT EXISTS anonymize AS (name) -> concat('Anonymize ', name, ' 🐥')`,
		fmt.Sprintf(`CREATE FUNCTION IF NOT EXISTS anonymize_email AS (email) -> concat(
			arrayStringConcat(arrayMap(
				i -> substring('%[1]s', (rand(i) %% %[2]d) + 1, 1),
				range(greatest(position(email, '@'), 1) - 1)
			)),
			substring(email, position(email, '@')),
			if(throwIf(position(email, '@') = 0, '%[3]s') = 0, '', '')
		)`, emailAlphabet, len(emailAlphabet), ErrInvalidEmail),
	}
}
