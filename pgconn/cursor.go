package pgconn

import "fmt"

// DeclareCursor issues "DECLARE <name> CURSOR FOR <sql>" through the
// simple query protocol and returns a fresh, monotonically-numbered
// cursor name (spec §4.H stream_cmd: "declares cursor qail_cursor_<n>").
// Cursors require an open transaction; the caller is expected to have
// already issued begin().
func (c *Conn) DeclareCursor(sql string) (string, error) {
	name := c.nextCursorName()
	_, err := c.SimpleExec(fmt.Sprintf("DECLARE %s CURSOR FOR %s", name, sql))
	if err != nil {
		return "", err
	}
	return name, nil
}

// FetchCursor issues "FETCH FORWARD <batch> FROM <name>" through the
// extended protocol (uncached, since the batch size varies per call) and
// returns the decoded rows; an empty result means the cursor is exhausted.
func (c *Conn) FetchCursor(name string, batch int) (*ResultSet, error) {
	sql := fmt.Sprintf("FETCH FORWARD %d FROM %s", batch, name)
	return c.Fetch(sql, nil, nil, false)
}

// CloseCursor issues "CLOSE <name>".
func (c *Conn) CloseCursor(name string) error {
	_, err := c.SimpleExec("CLOSE " + name)
	return err
}
