//go:build !wasm

package record

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	. "github.com/tinywasm/fmt"
)

// FieldInfo describes one mappable struct field found by the generator.
type FieldInfo struct {
	Name        string
	ColumnName  string
	Type        FieldType
	Constraints Constraint
	IsPK        bool
	GoType      string
}

// StructInfo describes one parsed model struct.
type StructInfo struct {
	Name              string
	TableName         string
	PackageName       string
	Fields            []FieldInfo
	TableNameDeclared bool
	SourceFile        string
}

// Recgen is the code generator handler for the recgen tool. It parses
// tagged model structs and emits static table metadata plus a typed
// facade over Record for each.
type Recgen struct {
	logFn   func(messages ...any)
	rootDir string
}

// NewRecgen creates a new Recgen handler with rootDir defaulting to ".".
func NewRecgen() *Recgen {
	return &Recgen{rootDir: "."}
}

// SetLog sets the log function for warnings and informational messages.
// If not set, messages are silently discarded.
func (g *Recgen) SetLog(fn func(messages ...any)) {
	g.logFn = fn
}

// SetRootDir sets the root directory that Run() will scan. Defaults to
// ".".
func (g *Recgen) SetRootDir(dir string) {
	g.rootDir = dir
}

func (g *Recgen) log(messages ...any) {
	if g.logFn != nil {
		g.logFn(messages...)
	}
}

// detectTableName scans the AST for func (X) TableName() string on
// structName and returns the literal return value, "" when absent.
func detectTableName(node *ast.File, structName string) string {
	for _, decl := range node.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok || funcDecl.Recv == nil || len(funcDecl.Recv.List) == 0 {
			continue
		}
		if funcDecl.Name.Name != "TableName" {
			continue
		}
		recv := funcDecl.Recv.List[0].Type
		recvName := ""
		if ident, ok := recv.(*ast.Ident); ok {
			recvName = ident.Name
		} else if star, ok := recv.(*ast.StarExpr); ok {
			if ident, ok := star.X.(*ast.Ident); ok {
				recvName = ident.Name
			}
		}
		if recvName != structName {
			continue
		}
		if funcDecl.Body != nil && len(funcDecl.Body.List) == 1 {
			if ret, ok := funcDecl.Body.List[0].(*ast.ReturnStmt); ok && len(ret.Results) == 1 {
				if lit, ok := ret.Results[0].(*ast.BasicLit); ok {
					return Convert(lit.Value).TrimPrefix(`"`).TrimSuffix(`"`).String()
				}
			}
		}
	}
	return ""
}

// ParseStruct parses a single struct from a Go file and returns its
// metadata.
func (g *Recgen) ParseStruct(structName string, goFile string) (StructInfo, error) {
	if structName == "" {
		return StructInfo{}, Err("Please provide a struct name")
	}
	if goFile == "" {
		return StructInfo{}, Err("goFile path cannot be empty")
	}

	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, goFile, nil, parser.ParseComments)
	if err != nil {
		return StructInfo{}, Err(err, "Failed to parse file")
	}

	var targetStruct *ast.StructType
	var structFound bool

	ast.Inspect(node, func(n ast.Node) bool {
		if typeSpec, ok := n.(*ast.TypeSpec); ok {
			if typeSpec.Name.Name == structName {
				if structType, ok := typeSpec.Type.(*ast.StructType); ok {
					targetStruct = structType
					structFound = true
					return false
				}
			}
		}
		return true
	})

	if !structFound {
		return StructInfo{}, Err("Struct not found in file")
	}

	tableName := detectTableName(node, structName)
	declared := tableName != ""
	if !declared {
		tableName = Convert(structName + "s").SnakeLow().String()
	}

	info := StructInfo{
		Name:              structName,
		TableName:         tableName,
		PackageName:       node.Name.Name,
		TableNameDeclared: declared,
	}

	pkFound := false
	for _, field := range targetStruct.Fields.List {
		if len(field.Names) == 0 {
			continue // Anonymous field, skip for now
		}

		fieldName := field.Names[0].Name
		if !ast.IsExported(fieldName) {
			continue
		}

		dbTag := ""
		if field.Tag != nil {
			tagVal := Convert(field.Tag.Value).TrimPrefix("`").TrimSuffix("`").String()
			parts := Convert(tagVal).Split(" ")
			for _, p := range parts {
				if HasPrefix(p, "db:\"") {
					dbTag = Convert(p).TrimPrefix(`db:"`).TrimSuffix(`"`).String()
					break
				}
			}
		}

		if dbTag == "-" {
			continue
		}

		var fieldType FieldType
		var typeStr string

		if ident, ok := field.Type.(*ast.Ident); ok {
			typeStr = ident.Name
		} else if sel, ok := field.Type.(*ast.SelectorExpr); ok {
			if pkgIdent, ok := sel.X.(*ast.Ident); ok {
				typeStr = pkgIdent.Name + "." + sel.Sel.Name
			}
		} else if arr, ok := field.Type.(*ast.ArrayType); ok {
			if eltIdent, ok := arr.Elt.(*ast.Ident); ok && eltIdent.Name == "byte" {
				typeStr = "[]byte"
			}
		}

		switch typeStr {
		case "string":
			fieldType = TypeText
		case "int", "int32", "int64", "uint", "uint32", "uint64":
			fieldType = TypeInt64
		case "float32", "float64":
			fieldType = TypeFloat64
		case "bool":
			fieldType = TypeBool
		case "[]byte":
			fieldType = TypeBlob
		case "time.Time":
			fieldType = TypeDate
		default:
			g.log(Sprintf("Warning: unsupported type %s for field %s.%s; skipping. Add db:\"-\" to suppress.", typeStr, structName, fieldName))
			continue
		}

		colName := Convert(fieldName).SnakeLow().String()
		isID, isPK := IDorPrimaryKey(tableName, fieldName)

		constraints := ConstraintNone

		fieldIsPK := false
		if (isID || isPK) && !pkFound {
			fieldIsPK = true
			pkFound = true
			constraints |= ConstraintPK
		}

		if dbTag != "" {
			tagParts := Convert(dbTag).Split(",")
			for _, p := range tagParts {
				switch p {
				case "pk":
					if !fieldIsPK {
						constraints |= ConstraintPK
						fieldIsPK = true
						pkFound = true
					}
				case "unique":
					constraints |= ConstraintUnique
				case "not_null":
					constraints |= ConstraintNotNull
				case "autoincrement":
					if fieldType == TypeText {
						return StructInfo{}, Err("autoincrement not allowed on TypeText")
					}
					constraints |= ConstraintAutoIncrement
				}
			}
		}

		info.Fields = append(info.Fields, FieldInfo{
			Name:        fieldName,
			ColumnName:  colName,
			Type:        fieldType,
			Constraints: constraints,
			IsPK:        fieldIsPK,
			GoType:      goTypeFor(fieldType),
		})
	}

	return info, nil
}

// goTypeFor maps a field type to the facade accessor's Go type.
func goTypeFor(t FieldType) string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeBlob:
		return "[]byte"
	case TypeDate:
		return "time.Time"
	}
	return "string"
}

func typeExprFor(t FieldType) string {
	switch t {
	case TypeInt64:
		return "record.TypeInt64"
	case TypeFloat64:
		return "record.TypeFloat64"
	case TypeBool:
		return "record.TypeBool"
	case TypeBlob:
		return "record.TypeBlob"
	case TypeDate:
		return "record.TypeDate"
	}
	return "record.TypeText"
}

// GenerateForStruct reads the Go file and generates the table metadata
// and typed facade for a given struct name.
func (g *Recgen) GenerateForStruct(structName string, goFile string) error {
	info, err := g.ParseStruct(structName, goFile)
	if err != nil {
		return err
	}
	if len(info.Fields) == 0 {
		return nil
	}
	return g.GenerateForFile([]StructInfo{info}, goFile)
}

// GenerateForFile writes generated code for all infos into one file.
func (g *Recgen) GenerateForFile(infos []StructInfo, sourceFile string) error {
	if len(infos) == 0 {
		return nil
	}
	buf := Convert()

	needsTime := false
	for _, info := range infos {
		for _, f := range info.Fields {
			if f.Type == TypeDate {
				needsTime = true
			}
		}
	}

	buf.Write(Sprintf("// Code generated by recgen; DO NOT EDIT.\n"))
	buf.Write(Sprintf("package %s\n\n", infos[0].PackageName))

	buf.Write("import (\n")
	if needsTime {
		buf.Write("\t\"time\"\n\n")
	}
	buf.Write("\t\"github.com/tinywasm/record\"\n")
	buf.Write("\t\"github.com/tinywasm/record/sqldb\"\n")
	buf.Write(")\n\n")

	for _, info := range infos {
		// Static table metadata
		buf.Write(Sprintf("// New%sTable builds the %s table metadata for a dialect builder.\n", info.Name, info.TableName))
		buf.Write(Sprintf("func New%sTable(b *sqldb.Builder) *sqldb.Table {\n", info.Name))
		buf.Write(Sprintf("\treturn sqldb.NewTable(\"%s\", b,\n", info.TableName))
		for _, f := range info.Fields {
			var constraintStr []string
			if f.Constraints == ConstraintNone {
				constraintStr = append(constraintStr, "record.ConstraintNone")
			} else {
				if f.Constraints&ConstraintPK != 0 {
					constraintStr = append(constraintStr, "record.ConstraintPK")
				}
				if f.Constraints&ConstraintUnique != 0 {
					constraintStr = append(constraintStr, "record.ConstraintUnique")
				}
				if f.Constraints&ConstraintNotNull != 0 {
					constraintStr = append(constraintStr, "record.ConstraintNotNull")
				}
				if f.Constraints&ConstraintAutoIncrement != 0 {
					constraintStr = append(constraintStr, "record.ConstraintAutoIncrement")
				}
			}
			buf.Write(Sprintf("\t\trecord.Field{Name: \"%s\", Type: %s, Constraints: %s},\n",
				f.ColumnName, typeExprFor(f.Type), Convert(constraintStr).Join(" | ").String()))
		}
		buf.Write("\t)\n")
		buf.Write("}\n\n")

		// Column name descriptors
		buf.Write(Sprintf("var %sFields = struct {\n", info.Name))
		for _, f := range info.Fields {
			buf.Write(Sprintf("\t%s string\n", f.Name))
		}
		buf.Write("}{\n")
		for _, f := range info.Fields {
			buf.Write(Sprintf("\t%s: \"%s\",\n", f.Name, f.ColumnName))
		}
		buf.Write("}\n\n")

		// Typed facade over Record
		facade := info.Name + "Record"
		buf.Write(Sprintf("// %s is a typed facade over a %s record.\n", facade, info.TableName))
		buf.Write(Sprintf("type %s struct {\n", facade))
		buf.Write("\t*record.Record\n")
		buf.Write("}\n\n")

		buf.Write(Sprintf("func New%s(t record.Table, conn record.Connection) %s {\n", facade, facade))
		buf.Write(Sprintf("\treturn %s{record.NewRecord(t, conn)}\n", facade))
		buf.Write("}\n\n")

		for _, f := range info.Fields {
			buf.Write(Sprintf("func (m %s) %s() %s {\n", facade, f.Name, f.GoType))
			buf.Write(Sprintf("\tv, _ := m.Get(\"%s\").(%s)\n", f.ColumnName, f.GoType))
			buf.Write("\treturn v\n")
			buf.Write("}\n\n")

			buf.Write(Sprintf("func (m %s) Set%s(v %s) error {\n", facade, f.Name, f.GoType))
			buf.Write(Sprintf("\treturn m.Record.Set(\"%s\", v)\n", f.ColumnName))
			buf.Write("}\n\n")
		}
	}

	outName := Convert(sourceFile).TrimSuffix(".go").String() + "_record.go"
	return os.WriteFile(outName, buf.Bytes(), 0644)
}

// collectAllStructs walks rootDir and returns parsed StructInfo for every
// struct declared in model.go / models.go files.
func (g *Recgen) collectAllStructs() (map[string]StructInfo, []string, []string, error) {
	all := make(map[string]StructInfo)
	var structOrder []string
	var fileOrder []string
	fileSeen := make(map[string]bool)

	err := filepath.Walk(g.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			dirName := info.Name()
			if dirName == "vendor" || dirName == ".git" || dirName == "testdata" {
				return filepath.SkipDir
			}
			return nil
		}

		fileName := info.Name()
		if fileName == "model.go" || fileName == "models.go" {
			fset := token.NewFileSet()
			node, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
			if err != nil {
				return nil // Skip unparseable files
			}

			for _, decl := range node.Decls {
				if genDecl, ok := decl.(*ast.GenDecl); ok && genDecl.Tok == token.TYPE {
					for _, spec := range genDecl.Specs {
						if typeSpec, ok := spec.(*ast.TypeSpec); ok {
							if _, ok := typeSpec.Type.(*ast.StructType); ok {
								parsed, err := g.ParseStruct(typeSpec.Name.Name, path)
								if err != nil {
									g.log(Sprintf("Skipping %s in %s: %v", typeSpec.Name.Name, path, err))
									continue
								}
								if len(parsed.Fields) == 0 {
									g.log(Sprintf("Warning: %s has no mappable fields; skipping", typeSpec.Name.Name))
									continue
								}
								parsed.SourceFile = path
								all[parsed.Name] = parsed
								structOrder = append(structOrder, parsed.Name)
								if !fileSeen[path] {
									fileSeen[path] = true
									fileOrder = append(fileOrder, path)
								}
							}
						}
					}
				}
			}
		}

		return nil
	})

	return all, structOrder, fileOrder, err
}

// Run is the entry point for the CLI tool.
func (g *Recgen) Run() error {
	all, structOrder, fileOrder, err := g.collectAllStructs()
	if err != nil {
		return Err(err, "error walking directory")
	}
	if len(all) == 0 {
		return Err("no models found")
	}

	byFile := make(map[string][]StructInfo)
	for _, structName := range structOrder {
		info := all[structName]
		byFile[info.SourceFile] = append(byFile[info.SourceFile], info)
	}

	for _, sourceFile := range fileOrder {
		infos := byFile[sourceFile]
		if len(infos) > 0 {
			if err := g.GenerateForFile(infos, sourceFile); err != nil {
				g.log(Sprintf("Failed to write output for %s: %v", sourceFile, err))
			}
		}
	}
	return nil
}
