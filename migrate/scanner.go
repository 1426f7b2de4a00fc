package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// Reference is one table reference found by Scan (spec §4.K).
type Reference struct {
	File     string
	Line     int
	Table    string
	Columns  []string
	Action   string
	IsCTERef bool
}

// skipDirs names directories Scan never descends into.
var skipDirs = map[string]bool{
	"target": true, "node_modules": true, ".git": true,
	"vendor": true, "__pycache__": true, "dist": true,
}

// rootCalls maps this module's builder entry points to the action name
// reported on a Reference, mirroring the verb set spec §4.K expects a
// same-language AST scan to resolve.
var rootCalls = map[string]string{
	"Get": "get", "With": "with", "Add": "add", "Set": "set",
	"Del": "del", "Put": "put", "Make": "make", "Drop": "drop",
	"Alter": "alter", "Export": "export",
}

// Scan walks root and returns every table reference it can resolve,
// dispatching Go files to a tree-sitter AST walk and everything else to
// a regex sweep (spec §4.K).
func Scan(root string) ([]Reference, error) {
	var refs []Reference
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if filepath.Ext(path) == ".go" {
			refs = append(refs, scanGoFile(path, content)...)
		} else {
			refs = append(refs, scanRegexSweep(path, content)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// scanGoFile parses content with tree-sitter's Go grammar and resolves
// builder-chain calls rooted at one of rootCalls, tracking aliases
// introduced by .FromCTE("name") so the validator can skip them (spec
// §4.K: "CTE references ... MUST be skipped when checking table
// existence").
func scanGoFile(path string, content []byte) []Reference {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(nil, nil, content)
	if err != nil || tree == nil {
		return scanRegexSweep(path, content)
	}
	defer tree.Close()

	cteNames := map[string]bool{}
	var refs []Reference

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "call_expression" && isChainTip(n) {
			if ref, ok := resolveChain(n, path, content, cteNames); ok {
				refs = append(refs, ref)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return refs
}

// isChainTip reports whether call is the outermost call in its method
// chain — i.e. its result does not itself feed a further
// selector_expression.Method() call. Walking only from chain tips means
// each chain is resolved exactly once, from the end backward.
func isChainTip(call *sitter.Node) bool {
	parent := call.Parent()
	if parent == nil {
		return true
	}
	if parent.Type() != "selector_expression" {
		return true
	}
	operand := parent.ChildByFieldName("operand")
	return operand == nil || operand.StartByte() != call.StartByte() || operand.EndByte() != call.EndByte()
}

// chainLink is one .Method("arg", ...) call peeled off a chain.
type chainLink struct {
	method string
	args   []string
}

// resolveChain walks a call_expression chain from its tip down to its
// root, requiring the root to be `<pkg>.<RootCall>("table")`. It returns
// a Reference built from the root table and every Columns(...)/Column(
// ...) link found along the chain, or ok=false if the chain does not
// resolve to a known root call (e.g. it calls some unrelated package).
func resolveChain(tip *sitter.Node, path string, content []byte, cteNames map[string]bool) (Reference, bool) {
	var links []chainLink
	rootTable := ""
	action := ""
	resolvedRoot := false

	cur := tip
	for cur != nil && cur.Type() == "call_expression" {
		fn := cur.ChildByFieldName("function")
		if fn == nil || fn.Type() != "selector_expression" {
			break
		}
		operand := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		if field == nil || operand == nil {
			break
		}
		methodName := field.Content(content)
		args := stringArgs(cur.ChildByFieldName("arguments"), content)

		if operand.Type() == "call_expression" {
			links = append([]chainLink{{method: methodName, args: args}}, links...)
			cur = operand
			continue
		}

		if operand.Type() == "identifier" {
			if act, known := rootCalls[methodName]; known && len(args) > 0 {
				rootTable = args[0]
				action = act
				resolvedRoot = true
			}
		}
		break
	}

	if !resolvedRoot {
		return Reference{}, false
	}

	var cols []string
	isCTE := cteNames[rootTable]
	for _, link := range links {
		switch link.method {
		case "Columns", "Column":
			cols = append(cols, link.args...)
		case "FromCTE":
			if len(link.args) > 0 {
				cteNames[link.args[0]] = true
			}
		}
	}

	return Reference{
		File:     path,
		Line:     int(tip.StartPoint().Row) + 1,
		Table:    rootTable,
		Columns:  cols,
		Action:   action,
		IsCTERef: isCTE,
	}, true
}

// stringArgs extracts every plain string-literal argument from an
// argument_list node, in order, skipping non-literal arguments
// (identifiers, nested calls) since those can't be resolved statically.
func stringArgs(argList *sitter.Node, content []byte) []string {
	if argList == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(argList.NamedChildCount()); i++ {
		n := argList.NamedChild(i)
		switch n.Type() {
		case "interpreted_string_literal":
			out = append(out, strings.Trim(n.Content(content), `"`))
		case "raw_string_literal":
			out = append(out, strings.Trim(n.Content(content), "`"))
		}
	}
	return out
}

// sqlPattern and keywordPattern implement the "other languages" half of
// spec §4.K: a regex sweep for raw SQL and for QAIL's symbolic/keyword
// surface syntax, used for every non-Go file and as a fallback if the
// tree-sitter parse of a Go file fails.
var (
	sqlPattern     = regexp.MustCompile(`(?i)\b(SELECT\s+.*?\s+FROM|INSERT\s+INTO|UPDATE|DELETE\s+FROM)\s+["` + "`" + `]?(\w+)["` + "`" + `]?`)
	keywordPattern = regexp.MustCompile(`\b(get|add|set|del|put|with)(?:::|\s+)(\w+)`)
)

func scanRegexSweep(path string, content []byte) []Reference {
	var refs []Reference
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if m := sqlPattern.FindStringSubmatch(line); m != nil {
			refs = append(refs, Reference{File: path, Line: i + 1, Table: m[2], Action: strings.ToLower(strings.Fields(m[1])[0])})
		}
		if m := keywordPattern.FindStringSubmatch(line); m != nil {
			refs = append(refs, Reference{File: path, Line: i + 1, Table: m[2], Action: m[1]})
		}
	}
	return refs
}
