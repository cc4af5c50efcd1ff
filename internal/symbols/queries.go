package symbols

import "github.com/codelens/codelens/internal/types"

// Each query below captures only named definitions: imports, exports,
// and other non-definition captures are dropped, since the dependency
// graph re-derives import edges from raw source text rather than from
// these parse trees.

var goQuery = `
    (function_declaration name: (identifier) @function.name) @function
    (method_declaration name: (field_identifier) @method.name) @method
    (type_spec name: (type_identifier) @type.name) @type
    (const_spec name: (identifier) @constant.name) @constant
    (var_spec name: (identifier) @variable.name) @variable
`

var goKinds = map[string]types.SymbolKind{
	"function": types.SymbolFunction,
	"method":   types.SymbolMethod,
	"type":     types.SymbolType,
	"constant": types.SymbolConstant,
	"variable": types.SymbolVariable,
}

var pythonQuery = `
    (class_definition
        body: (block
            (function_definition name: (identifier) @method.name))) @method
    (function_definition name: (identifier) @function.name) @function
    (class_definition name: (identifier) @class.name) @class
`

var pythonKinds = map[string]types.SymbolKind{
	"function": types.SymbolFunction,
	"method":   types.SymbolMethod,
	"class":    types.SymbolClass,
}

var javascriptQuery = `
    (function_declaration name: (identifier) @function.name) @function
    (generator_function_declaration name: (identifier) @function.name) @function
    (variable_declarator
        name: (identifier) @function.name
        value: [(arrow_function) (function_expression) (generator_function)]) @function
    (method_definition name: (property_identifier) @method.name) @method
    (class_declaration name: (identifier) @class.name) @class
`

var javascriptKinds = map[string]types.SymbolKind{
	"function": types.SymbolFunction,
	"method":   types.SymbolMethod,
	"class":    types.SymbolClass,
}

var typescriptQuery = `
    (function_declaration name: (identifier) @function.name) @function
    (generator_function_declaration name: (identifier) @function.name) @function
    (method_definition name: (property_identifier) @method.name) @method
    (function_expression name: (identifier) @function.name) @function
    (class_declaration name: (type_identifier) @class.name) @class
    (interface_declaration name: (type_identifier) @interface.name) @interface
    (type_alias_declaration name: (type_identifier) @type.name) @type
    (enum_declaration name: (identifier) @type.name) @type
`

var typescriptKinds = map[string]types.SymbolKind{
	"function":  types.SymbolFunction,
	"method":    types.SymbolMethod,
	"class":     types.SymbolClass,
	"interface": types.SymbolInterface,
	"type":      types.SymbolType,
}

var rustQuery = `
    (impl_item
        body: (declaration_list
            (function_item name: (identifier) @method.name))) @method
    (trait_item
        body: (declaration_list
            (function_item name: (identifier) @method.name))) @method
    (function_item name: (identifier) @function.name) @function
    (struct_item name: (type_identifier) @class.name) @class
    (enum_item name: (type_identifier) @type.name) @type
    (trait_item name: (type_identifier) @interface.name) @interface
    (const_item name: (identifier) @constant.name) @constant
`

var rustKinds = map[string]types.SymbolKind{
	"function":  types.SymbolFunction,
	"method":    types.SymbolMethod,
	"class":     types.SymbolClass,
	"type":      types.SymbolType,
	"interface": types.SymbolInterface,
	"constant":  types.SymbolConstant,
}

var javaQuery = `
    (method_declaration name: (identifier) @method.name) @method
    (constructor_declaration name: (identifier) @method.name) @method
    (class_declaration name: (identifier) @class.name) @class
    (record_declaration name: (identifier) @class.name) @class
    (interface_declaration name: (identifier) @interface.name) @interface
    (enum_declaration name: (identifier) @type.name) @type
    (field_declaration declarator: (variable_declarator name: (identifier) @variable.name)) @variable
`

var javaKinds = map[string]types.SymbolKind{
	"method":    types.SymbolMethod,
	"class":     types.SymbolClass,
	"interface": types.SymbolInterface,
	"type":      types.SymbolType,
	"variable":  types.SymbolVariable,
}

var cppQuery = `
    (function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
    (class_specifier name: (type_identifier) @class.name) @class
    (struct_specifier name: (type_identifier) @class.name) @class
    (enum_specifier name: (type_identifier) @type.name) @type
`

var cppKinds = map[string]types.SymbolKind{
	"function": types.SymbolFunction,
	"class":    types.SymbolClass,
	"type":     types.SymbolType,
}

var csharpQuery = `
    (method_declaration name: (identifier) @method.name) @method
    (constructor_declaration name: (identifier) @method.name) @method
    (class_declaration name: (identifier) @class.name) @class
    (interface_declaration name: (identifier) @interface.name) @interface
    (struct_declaration name: (identifier) @class.name) @class
    (record_declaration name: (identifier) @class.name) @class
    (enum_declaration name: (identifier) @type.name) @type
    (property_declaration name: (identifier) @variable.name) @variable
`

var csharpKinds = map[string]types.SymbolKind{
	"method":    types.SymbolMethod,
	"class":     types.SymbolClass,
	"interface": types.SymbolInterface,
	"type":      types.SymbolType,
	"variable":  types.SymbolVariable,
}

var phpQuery = `
    (class_declaration name: (name) @class.name) @class
    (interface_declaration name: (name) @interface.name) @interface
    (trait_declaration name: (name) @class.name) @class
    (enum_declaration name: (name) @type.name) @type
    (function_definition name: (name) @function.name) @function
    (method_declaration name: (name) @method.name) @method
`

var phpKinds = map[string]types.SymbolKind{
	"class":     types.SymbolClass,
	"interface": types.SymbolInterface,
	"type":      types.SymbolType,
	"function":  types.SymbolFunction,
	"method":    types.SymbolMethod,
}
