package glean

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func isDigitRune(r rune) bool   { return unicode.IsDigit(r) }
func isAlphaRune(r rune) bool   { return unicode.IsLetter(r) }
func isNumericRune(r rune) bool { return unicode.IsNumber(r) }
func isLowerRune(r rune) bool   { return unicode.IsLower(r) }
func isUpperRune(r rune) bool   { return unicode.IsUpper(r) || unicode.IsTitle(r) }

func isSpaceRune(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// seqMethod implements a str or bytes method. The symbolic implementation
// runs when the receiver or an argument is symbolic; it may return
// errNoEncoding to realize & run the native implementation.
type seqMethod struct {
	native func(c *Ctx, recv Value, args []Value) (Value, error)
	sym    func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error)
}

func (m seqMethod) bind(name string) Method {
	return func(c *Ctx, recv Value, args ...Value) (Value, error) {
		all := append([]Value{recv}, args...)
		if m.sym != nil && c.intercept && c.space != nil {
			for _, v := range all {
				if containsSymbolic(v) {
					q, _ := seqOf(recv)
					r, err := m.sym(c, recv, q, args)
					if err != errNoEncoding {
						return r, err
					}
					break
				}
			}
		}
		vals, err := c.realizeMaybe(recv.Type().String()+"."+name, all...)
		if err != nil {
			return nil, err
		}
		return m.native(c, vals[0], vals[1:])
	}
}

func bindAll(m map[string]seqMethod) map[string]Method {
	out := make(map[string]Method, len(m))
	for name, impl := range m {
		out[name] = impl.bind(name)
	}
	return out
}

var strMethods = bindAll(map[string]seqMethod{
	"lower":        {native: nativeCase(false), sym: symCase(false)},
	"upper":        {native: nativeCase(true), sym: symCase(true)},
	"startswith":   {native: nativeAffix(false), sym: symAffix(false)},
	"endswith":     {native: nativeAffix(true), sym: symAffix(true)},
	"find":         {native: nativeFind(false, false), sym: symFind(false, false)},
	"rfind":        {native: nativeFind(true, false), sym: symFind(true, false)},
	"index":        {native: nativeFind(false, true), sym: symFind(false, true)},
	"rindex":       {native: nativeFind(true, true), sym: symFind(true, true)},
	"count":        {native: nativeCount},
	"replace":      {native: nativeReplace},
	"split":        {native: nativeSplit},
	"join":         {native: nativeJoin, sym: symJoin},
	"strip":        {native: nativeStrip(true, true)},
	"lstrip":       {native: nativeStrip(true, false)},
	"rstrip":       {native: nativeStrip(false, true)},
	"isdigit":      {native: nativePredicate("isdigit"), sym: symPredicate("isdigit")},
	"isalpha":      {native: nativePredicate("isalpha"), sym: symPredicate("isalpha")},
	"isalnum":      {native: nativePredicate("isalnum"), sym: symPredicate("isalnum")},
	"isspace":      {native: nativePredicate("isspace"), sym: symPredicate("isspace")},
	"islower":      {native: nativePredicate("islower"), sym: symPredicate("islower")},
	"isupper":      {native: nativePredicate("isupper"), sym: symPredicate("isupper")},
	"encode":       {native: nativeEncode, sym: symEncode},
	"capitalize":   {native: nativeCapitalize},
	"title":        {native: nativeTitle},
	"swapcase":     {native: nativeSwapcase},
	"zfill":        {native: nativeZfill},
	"center":       {native: nativePad("center")},
	"ljust":        {native: nativePad("ljust")},
	"rjust":        {native: nativePad("rjust")},
	"partition":    {native: nativePartition},
	"splitlines":   {native: nativeSplitlines},
	"removeprefix": {native: nativeRemoveAffix(false)},
	"removesuffix": {native: nativeRemoveAffix(true)},
	"format":       {native: nativeFormatMethod, sym: symFormatMethod},
})

var bytesMethods = bindAll(map[string]seqMethod{
	"lower":      {native: nativeCase(false), sym: symCase(false)},
	"upper":      {native: nativeCase(true), sym: symCase(true)},
	"startswith": {native: nativeAffix(false), sym: symAffix(false)},
	"endswith":   {native: nativeAffix(true), sym: symAffix(true)},
	"find":       {native: nativeFind(false, false), sym: symFind(false, false)},
	"rfind":      {native: nativeFind(true, false), sym: symFind(true, false)},
	"index":      {native: nativeFind(false, true), sym: symFind(false, true)},
	"count":      {native: nativeCount},
	"replace":    {native: nativeReplace},
	"split":      {native: nativeSplit},
	"join":       {native: nativeJoin, sym: symJoin},
	"strip":      {native: nativeStrip(true, true)},
	"lstrip":     {native: nativeStrip(true, false)},
	"rstrip":     {native: nativeStrip(false, true)},
	"isdigit":    {native: nativePredicate("isdigit"), sym: symPredicate("isdigit")},
	"isalpha":    {native: nativePredicate("isalpha"), sym: symPredicate("isalpha")},
	"isalnum":    {native: nativePredicate("isalnum"), sym: symPredicate("isalnum")},
	"isspace":    {native: nativePredicate("isspace"), sym: symPredicate("isspace")},
	"decode":     {native: nativeDecode, sym: symDecode},
	"hex":        {native: nativeHex},
})

// checkArgs validates the number of arguments passed to a method.
func checkArgs(name string, args []Value, min, max int) error {
	if len(args) < min {
		return NewException(TypeError, "%s() takes at least %d argument(s) (%d given)", name, min, len(args))
	} else if len(args) > max {
		return NewException(TypeError, "%s() takes at most %d argument(s) (%d given)", name, max, len(args))
	}
	return nil
}

// optArg returns args[i] or nil if it is missing or None.
func optArg(args []Value, i int) Value {
	if i >= len(args) || args[i].Type() == TypeNone {
		return nil
	}
	return args[i]
}

// units returns the characters of a concrete str, or the bytes of a
// concrete bytes value widened to runes.
func units(v Value) []rune {
	switch v := v.(type) {
	case Str:
		return []rune(string(v))
	case Bytes:
		out := make([]rune, len(v))
		for i := 0; i < len(v); i++ {
			out[i] = rune(v[i])
		}
		return out
	}
	panic(fmt.Sprintf("units: not a sequence: %T", v))
}

// fromUnits builds a value of the receiver's type from characters.
func fromUnits(recv Value, u []rune) Value {
	if recv.Type() == TypeBytes {
		buf := make([]byte, len(u))
		for i, r := range u {
			buf[i] = byte(r)
		}
		return Bytes(buf)
	}
	return Str(u)
}

// text returns the Go string of a concrete str or bytes value.
func text(v Value) string {
	switch v := v.(type) {
	case Str:
		return string(v)
	case Bytes:
		return string(v)
	}
	panic(fmt.Sprintf("text: not a sequence: %T", v))
}

func wrapText(recv Value, s string) Value {
	if recv.Type() == TypeBytes {
		return Bytes(s)
	}
	return Str(s)
}

// argLike returns arg as a Go string, requiring the receiver's type.
func argLike(recv, arg Value) (string, error) {
	if arg.Type() != recv.Type() {
		if recv.Type() == TypeBytes {
			return "", NewException(TypeError, "a bytes-like object is required, not '%s'", arg.Type())
		}
		return "", NewException(TypeError, "must be str, not %s", arg.Type())
	}
	return text(arg), nil
}

func argInt(arg Value, name string) (int, error) {
	i, ok := toBig(arg)
	if !ok {
		return 0, NewException(TypeError, "'%s' object cannot be interpreted as an integer", arg.Type())
	} else if !i.IsInt64() {
		return 0, NewException(OverflowError, "%s: Python int too large to convert to C ssize_t", name)
	}
	return int(i.Int64()), nil
}

func nativeCase(upper bool) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs("lower", args, 0, 0); err != nil {
			return nil, err
		}
		if recv.Type() == TypeBytes {
			u := units(recv)
			for i, r := range u {
				if upper && r >= 'a' && r <= 'z' {
					u[i] = r - 32
				} else if !upper && r >= 'A' && r <= 'Z' {
					u[i] = r + 32
				}
			}
			return fromUnits(recv, u), nil
		}
		if upper {
			return Str(strings.ToUpper(text(recv))), nil
		}
		return Str(strings.ToLower(text(recv))), nil
	}
}

func symCase(upper bool) func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
		if len(args) != 0 {
			return nil, errNoEncoding
		}
		elems, err := q.Elems(c.space)
		if err != nil {
			return nil, err
		}
		if recv.Type() == TypeStr {
			if ok, err := c.space.Choose(isASCIIExpr(elems)); err != nil {
				return nil, err
			} else if !ok {
				return nil, errNoEncoding
			}
		}
		out := make([]Expr, len(elems))
		for i, e := range elems {
			out[i] = caseMap(e, upper)
		}
		return newSeqValue(recv.Type(), newLiteralSeq(q.sort, q.kind, out)), nil
	}
}

// window returns the [start, end) bounds selected by optional slice arguments.
func window(n int, start, end Value) (int, int, error) {
	lo, err := optIndex(start)
	if err != nil {
		return 0, 0, err
	}
	hi, err := optIndex(end)
	if err != nil {
		return 0, 0, err
	}
	a, b := 0, n
	if lo != nil {
		if a = *lo; a < 0 {
			a = max(a+n, 0)
		}
	}
	if hi != nil {
		if b = *hi; b < 0 {
			b = max(b+n, 0)
		}
		b = min(b, n)
	}
	return a, b, nil
}

func hasPrefixAt(hay, needle []rune, pos int) bool {
	if pos < 0 || pos+len(needle) > len(hay) {
		return false
	}
	for j, r := range needle {
		if hay[pos+j] != r {
			return false
		}
	}
	return true
}

func nativeAffix(suffix bool) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs("startswith", args, 1, 3); err != nil {
			return nil, err
		}
		u := units(recv)
		a, b, err := window(len(u), optArg(args, 1), optArg(args, 2))
		if err != nil {
			return nil, err
		} else if a > len(u) {
			return Bool(false), nil
		}
		win := u[a:max(a, b)]

		candidates := []Value{args[0]}
		if l, ok := args[0].(*List); ok {
			candidates = l.Items
		}
		for _, cand := range candidates {
			s, err := argLike(recv, cand)
			if err != nil {
				return nil, err
			}
			needle := units(wrapText(recv, s))
			pos := 0
			if suffix {
				pos = len(win) - len(needle)
			}
			if hasPrefixAt(win, needle, pos) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
}

func symAffix(suffix bool) func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
		if len(args) != 1 || args[0].Type() != recv.Type() {
			return nil, errNoEncoding
		}
		needle, _ := seqOf(args[0])
		nd, err := needle.Elems(c.space)
		if err != nil {
			return nil, err
		}
		m := NewIntConstantExpr(int64(len(nd)))
		if fits, err := c.space.Choose(NewBinaryExpr(LE, m, q.Len())); err != nil {
			return nil, err
		} else if !fits {
			return Bool(false), nil
		}

		var pos Expr = NewIntConstantExpr(0)
		if suffix {
			pos = NewBinaryExpr(SUB, q.Len(), m)
		}
		e, err := q.HasPrefixAt(c.space, nd, pos)
		if err != nil {
			return nil, err
		}
		return newBool(e), nil
	}
}

func nativeFind(last, raise bool) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs("find", args, 1, 3); err != nil {
			return nil, err
		}
		hay := units(recv)
		var needle []rune
		if i, ok := toBig(args[0]); ok && recv.Type() == TypeBytes {
			needle = []rune{rune(i.Int64())}
		} else {
			s, err := argLike(recv, args[0])
			if err != nil {
				return nil, err
			}
			needle = units(wrapText(recv, s))
		}
		a, b, err := window(len(hay), optArg(args, 1), optArg(args, 2))
		if err != nil {
			return nil, err
		}

		found := -1
		for pos := a; pos+len(needle) <= b; pos++ {
			if hasPrefixAt(hay, needle, pos) {
				found = pos
				if !last {
					break
				}
			}
		}
		if found < 0 && raise {
			return nil, NewException(ValueError, "substring not found")
		}
		return NewInt(int64(found)), nil
	}
}

func symFind(last, raise bool) func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
		if len(args) == 0 || len(args) > 2 || args[0].Type() != recv.Type() {
			return nil, errNoEncoding
		}
		needle, _ := seqOf(args[0])

		var start Expr = NewIntConstantExpr(0)
		if s := optArg(args, 1); s != nil {
			e, ok := intExpr(s)
			if !ok {
				return nil, errNoEncoding
			}
			zero := NewIntConstantExpr(0)
			start = NewIteExpr(NewBinaryExpr(LT, e, zero), maxExpr(NewBinaryExpr(ADD, e, q.Len()), zero), e)
		}

		idx, err := seqFind(c, q, needle, start, last)
		if err != nil {
			return nil, err
		}
		if raise {
			if missing, err := c.space.Choose(NewBinaryExpr(LT, idx, NewIntConstantExpr(0))); err != nil {
				return nil, err
			} else if missing {
				return nil, NewException(ValueError, "substring not found")
			}
		}
		return newInt(idx), nil
	}
}

func nativeCount(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("count", args, 1, 1); err != nil {
		return nil, err
	}
	sub, err := argLike(recv, args[0])
	if err != nil {
		return nil, err
	}
	return NewInt(int64(strings.Count(text(recv), sub))), nil
}

func nativeReplace(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("replace", args, 2, 3); err != nil {
		return nil, err
	}
	old, err := argLike(recv, args[0])
	if err != nil {
		return nil, err
	}
	repl, err := argLike(recv, args[1])
	if err != nil {
		return nil, err
	}
	n := -1
	if v := optArg(args, 2); v != nil {
		if n, err = argInt(v, "count"); err != nil {
			return nil, err
		}
	}
	return wrapText(recv, strings.Replace(text(recv), old, repl, n)), nil
}

func nativeSplit(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("split", args, 0, 2); err != nil {
		return nil, err
	}
	maxsplit := -1
	if v := optArg(args, 1); v != nil {
		var err error
		if maxsplit, err = argInt(v, "maxsplit"); err != nil {
			return nil, err
		}
	}

	var parts []string
	if sep := optArg(args, 0); sep == nil {
		s := text(recv)
		if recv.Type() == TypeBytes {
			parts = splitFunc(s, maxsplit, isASCIISpace)
		} else {
			parts = splitWhitespace(s, maxsplit)
		}
	} else {
		sep, err := argLike(recv, sep)
		if err != nil {
			return nil, err
		} else if sep == "" {
			return nil, NewException(ValueError, "empty separator")
		}
		n := -1
		if maxsplit >= 0 {
			n = maxsplit + 1
		}
		parts = strings.SplitN(text(recv), sep, n)
	}

	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = wrapText(recv, p)
	}
	return NewList(items...), nil
}

// splitFunc splits s on runs of bytes matching isSep.
func splitFunc(s string, maxsplit int, isSep func(rune) bool) []string {
	var out []string
	i := 0
	for {
		for i < len(s) && isSep(rune(s[i])) {
			i++
		}
		if i >= len(s) {
			return out
		}
		if maxsplit >= 0 && len(out) == maxsplit {
			return append(out, strings.TrimRightFunc(s[i:], isSep))
		}
		j := i
		for j < len(s) && !isSep(rune(s[j])) {
			j++
		}
		out = append(out, s[i:j])
		i = j
	}
}

func nativeJoin(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("join", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := c.Items(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		if item.Type() != recv.Type() {
			return nil, NewException(TypeError, "sequence item %d: expected %s instance, %s found", i, recv.Type(), item.Type())
		}
		parts[i] = text(item)
	}
	return wrapText(recv, strings.Join(parts, text(recv))), nil
}

func symJoin(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, errNoEncoding
	}
	items, err := c.Items(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]*Seq, len(items))
	for i, item := range items {
		p, ok := seqOf(item)
		if !ok || item.Type() != recv.Type() {
			return nil, NewException(TypeError, "sequence item %d: expected %s instance, %s found", i, recv.Type(), item.Type())
		}
		parts[i] = p
	}
	return strJoin(recv.Type(), q, parts), nil
}

func nativeStrip(left, right bool) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs("strip", args, 0, 1); err != nil {
			return nil, err
		}
		isSpace := isSpaceRune
		if recv.Type() == TypeBytes {
			isSpace = isASCIISpace
		}
		if chars := optArg(args, 0); chars != nil {
			set, err := argLike(recv, chars)
			if err != nil {
				return nil, err
			}
			cut := units(wrapText(recv, set))
			isSpace = func(r rune) bool {
				for _, x := range cut {
					if x == r {
						return true
					}
				}
				return false
			}
		}

		u := units(recv)
		i, j := 0, len(u)
		for left && i < j && isSpace(u[i]) {
			i++
		}
		for right && j > i && isSpace(u[j-1]) {
			j--
		}
		return fromUnits(recv, u[i:j]), nil
	}
}

func nativePredicate(name string) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs(name, args, 0, 0); err != nil {
			return nil, err
		}
		if recv.Type() == TypeBytes {
			u := units(recv)
			for _, r := range u {
				if r >= 0x80 {
					return Bool(false), nil
				}
			}
			return Bool(predicateStr(name, string(u))), nil
		}
		return Bool(predicateStr(name, text(recv))), nil
	}
}

func symPredicate(name string) func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
		elems, err := q.Elems(c.space)
		if err != nil {
			return nil, err
		} else if len(elems) == 0 {
			return Bool(false), nil
		}
		ascii := isASCIIExpr(elems)
		if recv.Type() == TypeStr {
			if ok, err := c.space.Choose(ascii); err != nil {
				return nil, err
			} else if !ok {
				return nil, errNoEncoding
			}
		}

		var conds []Expr
		switch name {
		case "islower", "isupper":
			other, same := "isupper", "islower"
			if name == "isupper" {
				other, same = "islower", "isupper"
			}
			var cased []Expr
			for _, e := range elems {
				conds = append(conds, NewNotExpr(asciiClass(other, e)))
				cased = append(cased, asciiClass(same, e))
			}
			conds = append(conds, NewOrExpr(cased...))
		default:
			for _, e := range elems {
				conds = append(conds, asciiClass(name, e))
			}
		}
		if recv.Type() == TypeBytes {
			conds = append(conds, ascii)
		}
		return newBool(NewAndExpr(conds...)), nil
	}
}

func codecName(args []Value, i int) (string, error) {
	v := optArg(args, i)
	if v == nil {
		return "utf-8", nil
	}
	s, ok := v.(Str)
	if !ok {
		return "", NewException(TypeError, "encoding must be str, not %s", v.Type())
	}
	switch name := strings.ReplaceAll(strings.ToLower(string(s)), "_", "-"); name {
	case "utf-8", "utf8":
		return "utf-8", nil
	case "ascii", "us-ascii":
		return "ascii", nil
	case "latin-1", "latin1", "iso-8859-1":
		return "latin-1", nil
	default:
		return "", NewException(LookupError, "unknown encoding: %s", s)
	}
}

func nativeEncode(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("encode", args, 0, 2); err != nil {
		return nil, err
	}
	codec, err := codecName(args, 0)
	if err != nil {
		return nil, err
	}
	s := text(recv)
	switch codec {
	case "utf-8":
		return Bytes(s), nil
	default:
		limit := rune(0x80)
		if codec == "latin-1" {
			limit = 0x100
		}
		var buf []byte
		for i, r := range []rune(s) {
			if r >= limit {
				return nil, NewException(ValueError, "'%s' codec can't encode character %s in position %d: ordinal not in range(%d)", codec, quoteStr(string(r)), i, limit)
			}
			buf = append(buf, byte(r))
		}
		return Bytes(buf), nil
	}
}

func symEncode(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	if len(args) > 1 {
		return nil, errNoEncoding
	} else if _, err := codecName(args, 0); err != nil {
		return nil, err
	}
	elems, err := q.Elems(c.space)
	if err != nil {
		return nil, err
	}
	if ok, err := c.space.Choose(isASCIIExpr(elems)); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNoEncoding
	}
	return newBytes(newLiteralSeq(SortInt, elemByte, elems)), nil
}

func nativeDecode(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("decode", args, 0, 2); err != nil {
		return nil, err
	}
	codec, err := codecName(args, 0)
	if err != nil {
		return nil, err
	}
	b := text(recv)
	switch codec {
	case "utf-8":
		for i := 0; i < len(b); {
			r, size := utf8.DecodeRuneInString(b[i:])
			if r == utf8.RuneError && size <= 1 {
				return nil, NewException(ValueError, "'utf-8' codec can't decode byte 0x%02x in position %d: invalid start byte", b[i], i)
			}
			i += size
		}
		return Str(b), nil
	case "ascii":
		for i := 0; i < len(b); i++ {
			if b[i] >= 0x80 {
				return nil, NewException(ValueError, "'ascii' codec can't decode byte 0x%02x in position %d: ordinal not in range(128)", b[i], i)
			}
		}
		return Str(b), nil
	default:
		return Str(units(recv)), nil
	}
}

func symDecode(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	if len(args) > 1 {
		return nil, errNoEncoding
	} else if _, err := codecName(args, 0); err != nil {
		return nil, err
	}
	elems, err := q.Elems(c.space)
	if err != nil {
		return nil, err
	}
	if ok, err := c.space.Choose(isASCIIExpr(elems)); err != nil {
		return nil, err
	} else if !ok {
		return nil, errNoEncoding
	}
	return newStr(newLiteralSeq(SortInt, elemCodePoint, elems)), nil
}

func nativeHex(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("hex", args, 0, 0); err != nil {
		return nil, err
	}
	return Str(hex.EncodeToString([]byte(text(recv)))), nil
}

func nativeCapitalize(c *Ctx, recv Value, args []Value) (Value, error) {
	u := units(recv)
	for i, r := range u {
		if i == 0 {
			u[i] = unicode.ToTitle(r)
		} else {
			u[i] = unicode.ToLower(r)
		}
	}
	return fromUnits(recv, u), nil
}

func nativeTitle(c *Ctx, recv Value, args []Value) (Value, error) {
	u := units(recv)
	prevCased := false
	for i, r := range u {
		if prevCased {
			u[i] = unicode.ToLower(r)
		} else {
			u[i] = unicode.ToTitle(r)
		}
		prevCased = unicode.IsLetter(r)
	}
	return fromUnits(recv, u), nil
}

func nativeSwapcase(c *Ctx, recv Value, args []Value) (Value, error) {
	u := units(recv)
	for i, r := range u {
		if unicode.IsUpper(r) {
			u[i] = unicode.ToLower(r)
		} else if unicode.IsLower(r) {
			u[i] = unicode.ToUpper(r)
		}
	}
	return fromUnits(recv, u), nil
}

func nativeZfill(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("zfill", args, 1, 1); err != nil {
		return nil, err
	}
	width, err := argInt(args[0], "zfill")
	if err != nil {
		return nil, err
	}
	u := units(recv)
	if len(u) >= width {
		return fromUnits(recv, u), nil
	}
	pad := []rune(strings.Repeat("0", width-len(u)))
	if len(u) > 0 && (u[0] == '+' || u[0] == '-') {
		out := append([]rune{u[0]}, pad...)
		return fromUnits(recv, append(out, u[1:]...)), nil
	}
	return fromUnits(recv, append(pad, u...)), nil
}

func nativePad(kind string) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs(kind, args, 1, 2); err != nil {
			return nil, err
		}
		width, err := argInt(args[0], kind)
		if err != nil {
			return nil, err
		}
		fill := ' '
		if v := optArg(args, 1); v != nil {
			s, err := argLike(recv, v)
			if err != nil {
				return nil, err
			} else if f := units(wrapText(recv, s)); len(f) != 1 {
				return nil, NewException(TypeError, "The fill character must be exactly one character long")
			} else {
				fill = f[0]
			}
		}
		return fromUnits(recv, []rune(padString(string(units(recv)), width, fill, kind))), nil
	}
}

// padString aligns s within width using fill.
func padString(s string, width int, fill rune, kind string) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	total := width - n
	var left int
	switch kind {
	case "rjust", ">":
		left = total
	case "center", "^":
		left = total / 2
		if total%2 == 1 && width%2 == 1 {
			left++
		}
	}
	f := string(fill)
	return strings.Repeat(f, left) + s + strings.Repeat(f, total-left)
}

func nativePartition(c *Ctx, recv Value, args []Value) (Value, error) {
	if err := checkArgs("partition", args, 1, 1); err != nil {
		return nil, err
	}
	sep, err := argLike(recv, args[0])
	if err != nil {
		return nil, err
	} else if sep == "" {
		return nil, NewException(ValueError, "empty separator")
	}
	s := text(recv)
	if i := strings.Index(s, sep); i >= 0 {
		return NewList(wrapText(recv, s[:i]), wrapText(recv, sep), wrapText(recv, s[i+len(sep):])), nil
	}
	return NewList(recv, wrapText(recv, ""), wrapText(recv, "")), nil
}

func nativeSplitlines(c *Ctx, recv Value, args []Value) (Value, error) {
	u := units(recv)
	var items []Value
	start := 0
	for i := 0; i < len(u); i++ {
		switch u[i] {
		case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			items = append(items, fromUnits(recv, u[start:i]))
			if u[i] == '\r' && i+1 < len(u) && u[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(u) {
		items = append(items, fromUnits(recv, u[start:]))
	}
	return NewList(items...), nil
}

func nativeRemoveAffix(suffix bool) func(c *Ctx, recv Value, args []Value) (Value, error) {
	return func(c *Ctx, recv Value, args []Value) (Value, error) {
		if err := checkArgs("removeprefix", args, 1, 1); err != nil {
			return nil, err
		}
		affix, err := argLike(recv, args[0])
		if err != nil {
			return nil, err
		}
		if suffix {
			return wrapText(recv, strings.TrimSuffix(text(recv), affix)), nil
		}
		return wrapText(recv, strings.TrimPrefix(text(recv), affix)), nil
	}
}

func nativeFormatMethod(c *Ctx, recv Value, args []Value) (Value, error) {
	return c.Format(string(recv.(Str)), args...)
}

func symFormatMethod(c *Ctx, recv Value, q *Seq, args []Value) (Value, error) {
	s, ok := recv.(Str)
	if !ok {
		return nil, errNoEncoding
	}
	return c.Format(string(s), args...)
}

// Format substitutes args into the replacement fields of format, as
// str.format does. Fields are "{}", "{N}" & either form with a format spec
// after a colon. Fields without a spec keep symbolic strings symbolic.
func (c *Ctx) Format(format string, args ...Value) (Value, error) {
	out := newLiteralSeq(SortInt, elemCodePoint, nil)
	var lit strings.Builder
	flush := func() {
		out = out.Concat(newStrSeq(lit.String()))
		lit.Reset()
	}

	auto := 0
	for i := 0; i < len(format); i++ {
		ch := format[i]
		switch {
		case ch == '{' && i+1 < len(format) && format[i+1] == '{':
			lit.WriteByte('{')
			i++
			continue
		case ch == '}' && i+1 < len(format) && format[i+1] == '}':
			lit.WriteByte('}')
			i++
			continue
		case ch == '}':
			return nil, NewException(ValueError, "Single '}' encountered in format string")
		case ch != '{':
			lit.WriteByte(ch)
			continue
		}

		end := strings.IndexByte(format[i:], '}')
		if end < 0 {
			return nil, NewException(ValueError, "Single '{' encountered in format string")
		}
		field := format[i+1 : i+end]
		i += end

		name, spec, _ := strings.Cut(field, ":")
		idx := auto
		if name == "" {
			auto++
		} else if n, err := strconv.Atoi(name); err != nil {
			return nil, NewException(KeyError, "%s", quoteStr(name))
		} else {
			idx = n
		}
		if idx >= len(args) {
			return nil, NewException(IndexError, "Replacement index %d out of range for positional args tuple", idx)
		}

		var part Value
		var err error
		if spec == "" {
			part, err = c.Str(args[idx])
		} else {
			part, err = c.formatSpec(args[idx], spec)
		}
		if err != nil {
			return nil, err
		}
		q, ok := seqOf(part)
		if !ok {
			return nil, NewException(TypeError, "format field did not produce a str")
		}
		flush()
		out = out.Concat(q)
	}
	flush()
	return newStr(out), nil
}

// formatSpec formats a realized value with a format spec of the form
// [[fill]align][0][width][.precision][type].
func (c *Ctx) formatSpec(v Value, spec string) (Value, error) {
	vals, err := c.realizeMaybe("format", v)
	if err != nil {
		return nil, err
	}
	v = vals[0]

	fill, align := ' ', ""
	rs := []rune(spec)
	if len(rs) >= 2 && strings.ContainsRune("<>^", rs[1]) {
		fill, align, rs = rs[0], string(rs[1]), rs[2:]
	} else if len(rs) >= 1 && strings.ContainsRune("<>^", rs[0]) {
		align, rs = string(rs[0]), rs[1:]
	}
	if len(rs) > 0 && rs[0] == '0' {
		fill, rs = '0', rs[1:]
		if align == "" {
			align = "="
		}
	}
	i := 0
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		i++
	}
	width, _ := strconv.Atoi(string(rs[:i]))
	rs = rs[i:]
	prec := -1
	if len(rs) > 0 && rs[0] == '.' {
		j := 1
		for j < len(rs) && rs[j] >= '0' && rs[j] <= '9' {
			j++
		}
		prec, _ = strconv.Atoi(string(rs[1:j]))
		rs = rs[j:]
	}
	verb := ""
	if len(rs) == 1 {
		verb = string(rs)
	} else if len(rs) > 1 {
		return nil, NewException(ValueError, "Invalid format specifier '%s'", spec)
	}

	var s string
	switch verb {
	case "f", "e", "g", "%":
		f, err := toFloat64(v)
		if err != nil || !v.Type().IsNumeric() {
			return nil, NewException(ValueError, "Unknown format code '%s' for object of type '%s'", verb, v.Type())
		}
		if prec < 0 {
			prec = 6
		}
		switch verb {
		case "%":
			s = strconv.FormatFloat(f*100, 'f', prec, 64) + "%"
		default:
			s = strconv.FormatFloat(f, verb[0], prec, 64)
		}
	case "d", "x", "b", "o":
		i, ok := toBig(v)
		if !ok {
			return nil, NewException(ValueError, "Unknown format code '%s' for object of type '%s'", verb, v.Type())
		}
		base := map[string]int{"d": 10, "x": 16, "b": 2, "o": 8}[verb]
		s = i.Text(base)
	default:
		if s, err = nativeStr(v); err != nil {
			return nil, err
		}
		if prec >= 0 && v.Type() == TypeStr {
			if r := []rune(s); len(r) > prec {
				s = string(r[:prec])
			}
		}
	}

	if align == "" {
		align = "<"
		if v.Type().IsNumeric() {
			align = ">"
		}
	}
	switch align {
	case "=":
		sign := ""
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			sign, s = s[:1], s[1:]
		}
		s = sign + padString(s, width-len(sign), fill, ">")
	default:
		s = padString(s, width, fill, align)
	}
	return Str(s), nil
}
