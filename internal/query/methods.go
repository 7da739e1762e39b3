package query

import (
	"fmt"
	"strings"

	"github.com/nlstn/go-odata-query/internal/edm"
	"github.com/nlstn/go-odata-query/internal/metadata"
)

// argKind is the family a method argument must belong to.
type argKind int

const (
	argString argKind = iota
	argIntegral
	argNumeric
	argDateLike // Date or DateTimeOffset
	argTimeLike // DateTimeOffset or TimeOfDay
	argDateTimeOffset
	argDuration
	argAny
	argTypeName
)

func (k argKind) String() string {
	switch k {
	case argString:
		return edm.String
	case argIntegral:
		return "an integer type"
	case argNumeric:
		return "a numeric type"
	case argDateLike:
		return "Edm.Date or Edm.DateTimeOffset"
	case argTimeLike:
		return "Edm.DateTimeOffset or Edm.TimeOfDay"
	case argDateTimeOffset:
		return edm.DateTimeOffset
	case argDuration:
		return edm.Duration
	case argTypeName:
		return "a type name"
	}
	return "any type"
}

// methodSignature describes one overload of a built-in method.
type methodSignature struct {
	args   []argKind
	result func(args []Node) metadata.TypeRef
}

func fixed(t metadata.TypeRef) func([]Node) metadata.TypeRef {
	return func([]Node) metadata.TypeRef { return t }
}

func sig(result metadata.TypeRef, args ...argKind) methodSignature {
	return methodSignature{args: args, result: fixed(result)}
}

// roundingResult keeps Double and Single, everything else rounds as Decimal.
func roundingResult(args []Node) metadata.TypeRef {
	switch args[0].ResultType().Name {
	case edm.Double, edm.Single:
		return doubleType
	}
	return decimalType
}

func castResult(args []Node) metadata.TypeRef {
	name := args[len(args)-1].(*TypeNameExpr).Name
	return metadata.ParseTypeRef(name)
}

// builtinMethods lists the supported methods with their overloads.
var builtinMethods = map[string][]methodSignature{
	"contains":           {sig(booleanType, argString, argString)},
	"startswith":         {sig(booleanType, argString, argString)},
	"endswith":           {sig(booleanType, argString, argString)},
	"length":             {sig(int32Type, argString)},
	"indexof":            {sig(int32Type, argString, argString)},
	"substring":          {sig(stringType, argString, argIntegral), sig(stringType, argString, argIntegral, argIntegral)},
	"tolower":            {sig(stringType, argString)},
	"toupper":            {sig(stringType, argString)},
	"trim":               {sig(stringType, argString)},
	"concat":             {sig(stringType, argString, argString)},
	"matchesPattern":     {sig(booleanType, argString, argString)},
	"year":               {sig(int32Type, argDateLike)},
	"month":              {sig(int32Type, argDateLike)},
	"day":                {sig(int32Type, argDateLike)},
	"hour":               {sig(int32Type, argTimeLike)},
	"minute":             {sig(int32Type, argTimeLike)},
	"second":             {sig(int32Type, argTimeLike)},
	"fractionalseconds":  {sig(decimalType, argTimeLike)},
	"totalseconds":       {sig(decimalType, argDuration)},
	"totaloffsetminutes": {sig(int32Type, argDateTimeOffset)},
	"date":               {sig(dateType, argDateTimeOffset)},
	"time":               {sig(timeOfDayType, argDateTimeOffset)},
	"now":                {sig(dateTimeOffsetType)},
	"maxdatetime":        {sig(dateTimeOffsetType)},
	"mindatetime":        {sig(dateTimeOffsetType)},
	"round":              {{args: []argKind{argNumeric}, result: roundingResult}},
	"floor":              {{args: []argKind{argNumeric}, result: roundingResult}},
	"ceiling":            {{args: []argKind{argNumeric}, result: roundingResult}},
	"cast": {
		{args: []argKind{argTypeName}, result: castResult},
		{args: []argKind{argAny, argTypeName}, result: castResult},
	},
	"isof": {
		sig(booleanType, argTypeName),
		sig(booleanType, argAny, argTypeName),
	},
}

// IsBuiltinMethod reports whether name is a supported method.
func IsBuiltinMethod(name string) bool {
	_, ok := builtinMethods[name]
	return ok
}

func (c *ParseContext) argMatches(kind argKind, arg Node) bool {
	t := arg.ResultType()
	if kind == argTypeName {
		_, ok := arg.(*TypeNameExpr)
		return ok
	}
	if _, isTypeName := arg.(*TypeNameExpr); isTypeName {
		return false
	}
	if t.IsUntyped() {
		return true
	}
	p := c.primitiveOf(t)
	switch kind {
	case argString:
		return p == edm.String
	case argIntegral:
		return edm.IsIntegral(p)
	case argNumeric:
		return edm.IsNumeric(p)
	case argDateLike:
		return p == edm.Date || p == edm.DateTimeOffset
	case argTimeLike:
		return p == edm.DateTimeOffset || p == edm.TimeOfDay
	case argDateTimeOffset:
		return p == edm.DateTimeOffset
	case argDuration:
		return p == edm.Duration
	case argAny:
		return !t.Collection
	}
	return false
}

// resolveMethod picks the overload matching the arguments and returns the
// result type.
func (c *ParseContext) resolveMethod(pos int, name string, args []Node) (metadata.TypeRef, error) {
	overloads := builtinMethods[name]

	arityMatched := false
	for _, s := range overloads {
		if len(s.args) != len(args) {
			continue
		}
		arityMatched = true
		ok := true
		for i, kind := range s.args {
			if !c.argMatches(kind, args[i]) {
				ok = false
				break
			}
		}
		if ok {
			return s.result(args), nil
		}
	}

	if !arityMatched {
		counts := make([]string, 0, len(overloads))
		for _, s := range overloads {
			counts = append(counts, fmt.Sprint(len(s.args)))
		}
		return metadata.TypeRef{}, c.semantic(pos, CodeArgumentCount,
			fmt.Sprintf("method %s requires %s arguments, got %d", name, strings.Join(counts, " or "), len(args)),
			[]string{name}, nil)
	}

	types := make([]string, len(args))
	for i, a := range args {
		if tn, ok := a.(*TypeNameExpr); ok {
			types[i] = tn.Name
		} else {
			types[i] = a.ResultType().String()
		}
	}
	var want []string
	for _, s := range overloads {
		if len(s.args) == len(args) {
			parts := make([]string, len(s.args))
			for i, k := range s.args {
				parts[i] = k.String()
			}
			want = append(want, "("+strings.Join(parts, ", ")+")")
		}
	}
	return metadata.TypeRef{}, c.semantic(pos, CodeArgumentType,
		fmt.Sprintf("method %s is not defined for argument types (%s), expected %s",
			name, strings.Join(types, ", "), strings.Join(want, " or ")),
		[]string{name}, types)
}
