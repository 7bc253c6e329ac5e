package main

import (
	"github.com/benbjohnson/glean"
)

// builtinTargets returns the targets analyzed by the check command.
func builtinTargets() []glean.Target {
	return []glean.Target{
		{
			Name: "floordiv_zero",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.FloorDiv(args[0], glean.NewInt(0))
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "x", Type: glean.IntSpec}}},
		},
		{
			Name: "abs_nonneg",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return c.Abs(args[0])
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Post: []glean.Condition{{
					Desc: "__return__ >= 0",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return c.Ge(call.Return, glean.NewInt(0))
					},
				}},
			},
		},
		{
			Name: "clamp",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				x, lo, hi := args[0], args[1], args[2]
				upper, err := c.Min(glean.NewList(x, hi))
				if err != nil {
					return nil, err
				}
				return c.Max(glean.NewList(lo, upper))
			},
			Contract: glean.Contract{
				Params: []glean.Param{
					{Name: "x", Type: glean.IntSpec},
					{Name: "lo", Type: glean.IntSpec},
					{Name: "hi", Type: glean.IntSpec},
				},
				Pre: []glean.Condition{{
					Desc: "lo <= hi",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return c.Le(call.Arg("lo"), call.Arg("hi"))
					},
				}},
				Post: []glean.Condition{
					{
						Desc: "lo <= __return__",
						Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
							return c.Le(call.Arg("lo"), call.Return)
						},
					},
					{
						Desc: "__return__ <= hi",
						Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
							return c.Le(call.Return, call.Arg("hi"))
						},
					},
				},
			},
		},
		{
			Name: "search_ab",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				m, err := c.Search(glean.Str("a+b"), args[0], 0)
				if err != nil {
					return nil, err
				}
				return glean.Bool(!c.Is(m, glean.None)), nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "s", Type: glean.StrSpec}},
				Post: []glean.Condition{{
					Desc: "not __return__ or 'ab' in s",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						if ok, err := c.Truth(call.Return); err != nil || !ok {
							return glean.Bool(true), err
						}
						return c.Contains(call.Arg("s"), glean.Str("ab"))
					},
				}},
			},
		},
		{
			Name: "middle",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				n, err := c.Len(args[0])
				if err != nil {
					return nil, err
				}
				i, err := c.FloorDiv(n, glean.NewInt(2))
				if err != nil {
					return nil, err
				}
				return c.GetItem(args[0], i)
			},
			Contract: glean.Contract{Params: []glean.Param{{Name: "xs", Type: glean.ListOf(glean.IntSpec)}}},
		},
		{
			Name: "impossible",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				return args[0], nil
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "x", Type: glean.IntSpec}},
				Pre: []glean.Condition{
					{
						Desc: "x > 0",
						Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
							return c.Gt(call.Arg("x"), glean.NewInt(0))
						},
					},
					{
						Desc: "x < 0",
						Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
							return c.Lt(call.Arg("x"), glean.NewInt(0))
						},
					},
				},
			},
		},
		{
			Name: "dumps_roundtrip",
			Fn: func(c *glean.Ctx, args ...glean.Value) (glean.Value, error) {
				s, err := c.JSONDumps(args[0])
				if err != nil {
					return nil, err
				}
				return c.JSONLoads(s)
			},
			Contract: glean.Contract{
				Params: []glean.Param{{Name: "d", Type: glean.DictOf(glean.StrSpec, glean.IntSpec)}},
				Post: []glean.Condition{{
					Desc: "__return__ == d",
					Fn: func(c *glean.Ctx, call *glean.Call) (glean.Value, error) {
						return c.Eq(call.Return, call.Arg("d"))
					},
				}},
			},
		},
	}
}
