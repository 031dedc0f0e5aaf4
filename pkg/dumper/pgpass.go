package dumper

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
)

// ErrPgpassNotFound is returned when no password file exists in any searched location
var ErrPgpassNotFound = errors.New("no .pgpass file found")

// dockerPgpassPath is where container deployments mount the password file
const dockerPgpassPath = "/config/.pgpass"

// ResolvePgpassFile returns the password file to hand to libpq tools.
// Priority: 1) configured path, 2) /config/.pgpass (Docker), 3) ~/.pgpass.
// A configured path that does not exist is an error; otherwise
// ErrPgpassNotFound tells the caller to rely on other credentials.
func ResolvePgpassFile(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured pgpass file not found: %s", configured)
		}
		return configured, nil
	}

	candidates := []string{dockerPgpassPath}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".pgpass"))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w (tried: %s)", ErrPgpassNotFound, strings.Join(candidates, ", "))
}

// ValidatePgpassPermissions checks the file is 0600. libpq silently ignores
// password files readable by group or others.
func ValidatePgpassPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat .pgpass file: %w", err)
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		return fmt.Errorf(".pgpass file %s has permissions %o, must be 0600", path, mode)
	}
	return nil
}

// HasPgpassEntry reports whether the file has a line matching the
// connection. Fields are hostname:port:database:username:password and "*"
// matches anything.
func HasPgpassEntry(path, host, port, database, username string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open .pgpass file: %w", err)
	}
	defer file.Close()

	want := []string{host, port, database, username}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, ":", 5)
		if len(fields) != 5 {
			continue
		}

		matched := true
		for i, value := range want {
			if fields[i] != "*" && fields[i] != value {
				matched = false
				break
			}
		}
		if matched {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("error reading .pgpass file: %w", err)
	}
	return false, nil
}

// connection holds the fields a .pgpass line is matched against
type connection struct {
	host     string
	port     string
	database string
	user     string
}

// parseConnection reads a URL or key=value DSN. Unset fields fall back to
// libpq's defaults: localhost, 5432, PGUSER and a database named after the user.
func parseConnection(dsn string) (connection, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return connection{}, fmt.Errorf("invalid postgres DSN: %w", err)
		}
		dsn = converted
	}

	conn := connection{host: "localhost", port: "5432", user: os.Getenv("PGUSER")}
	for _, pair := range strings.Fields(dsn) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return connection{}, fmt.Errorf("invalid postgres DSN: %q is not key=value", pair)
		}
		value = strings.Trim(value, "'")

		switch key {
		case "host":
			conn.host = value
		case "port":
			conn.port = value
		case "dbname":
			conn.database = value
		case "user":
			conn.user = value
		}
	}

	if conn.database == "" {
		conn.database = conn.user
	}
	return conn, nil
}
