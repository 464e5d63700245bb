package derivation

import (
	"testing"
	"time"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/template"
	"github.com/specialistvlad/hashgrid/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func attrs(name, script string) map[string]cty.Value {
	return map[string]cty.Value{
		AttrName:   cty.StringVal(name),
		AttrScript: cty.StringVal(script),
	}
}

func TestNew_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		attrs   map[string]cty.Value
		wantErr error
	}{
		{
			name:    "missing name",
			attrs:   map[string]cty.Value{AttrScript: cty.StringVal("true")},
			wantErr: ErrMissingAttribute,
		},
		{
			name:    "missing script",
			attrs:   map[string]cty.Value{AttrName: cty.StringVal("a")},
			wantErr: ErrMissingAttribute,
		},
		{
			name:    "null script",
			attrs:   map[string]cty.Value{AttrName: cty.StringVal("a"), AttrScript: cty.NullVal(cty.String)},
			wantErr: ErrMissingAttribute,
		},
		{
			name:    "name is not a string",
			attrs:   map[string]cty.Value{AttrName: cty.NumberIntVal(1), AttrScript: cty.StringVal("true")},
			wantErr: ErrInvalidAttribute,
		},
		{
			name:    "name is not a path segment",
			attrs:   attrs("a/b", "true"),
			wantErr: ErrInvalidAttribute,
		},
		{
			name:    "unterminated placeholder",
			attrs:   attrs("a", "echo ${out"),
			wantErr: template.ErrUnterminated,
		},
		{
			name: "bad time hint",
			attrs: map[string]cty.Value{
				AttrName:   cty.StringVal("a"),
				AttrScript: cty.StringVal("true"),
				AttrTime:   cty.StringVal("soon"),
			},
			wantErr: ErrInvalidAttribute,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.attrs)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestLifecycle(t *testing.T) {
	d, err := New(attrs("hello", "echo hi > ${out}"))
	require.NoError(t, err)
	assert.Equal(t, "hello", d.Name())
	assert.Equal(t, []string{"out"}, d.Placeholders())

	_, err = d.WriteHash()
	require.ErrorIs(t, err, ErrNotResolved)

	require.ErrorIs(t, d.Resolve(nil), template.ErrValueCount)
	require.False(t, d.Resolved())

	require.NoError(t, d.Resolve([]cty.Value{value.OutVal()}))
	require.ErrorIs(t, d.Resolve([]cty.Value{value.OutVal()}), ErrAlreadyResolved)

	id, err := d.WriteHash()
	require.NoError(t, err)
	assert.Equal(t, nodeid.Compute("hello", "echo hi > "+value.OutToken), id)
	assert.Empty(t, d.Dependencies())

	again, err := d.WriteHash()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, ok := d.ID()
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestWriteHash_DependenciesAndIdentity(t *testing.T) {
	a := nodeid.Compute("a", "echo a")
	b := nodeid.Compute("b", "echo b")

	build := func(refs ...cty.Value) nodeid.ID {
		d, err := New(attrs("c", "cat ${inputs} > ${out}"))
		require.NoError(t, err)
		require.NoError(t, d.Resolve([]cty.Value{cty.TupleVal(refs), value.OutVal()}))
		id, err := d.WriteHash()
		require.NoError(t, err)
		assert.Len(t, d.Dependencies(), 2)
		return id
	}

	ab := build(value.RefVal(a), value.RefVal(b))
	ba := build(value.RefVal(b), value.RefVal(a))
	again := build(value.RefVal(a), value.RefVal(b))

	assert.Equal(t, ab, again, "identical definitions must hash identically")
	assert.NotEqual(t, ab, ba, "argument order is part of the script text")
}

func TestWriteHash_UpstreamChangePropagates(t *testing.T) {
	hashWithDep := func(dep nodeid.ID) nodeid.ID {
		d, err := New(attrs("down", "cat ${dep}"))
		require.NoError(t, err)
		require.NoError(t, d.Resolve([]cty.Value{value.RefVal(dep)}))
		id, err := d.WriteHash()
		require.NoError(t, err)
		return id
	}

	v1 := hashWithDep(nodeid.Compute("up", "echo 1"))
	v2 := hashWithDep(nodeid.Compute("up", "echo 2"))
	assert.NotEqual(t, v1, v2)
}

func TestWriteHash_DedentsMultilineScripts(t *testing.T) {
	d, err := New(attrs("multi", "\n    set -e\n    echo ${out}\n"))
	require.NoError(t, err)
	require.NoError(t, d.Resolve([]cty.Value{cty.StringVal("x")}))
	_, err = d.WriteHash()
	require.NoError(t, err)
	assert.Equal(t, "\nset -e\necho x\n", d.Script())
}

func TestReset_AllowsResolvingAgain(t *testing.T) {
	d, err := New(attrs("greet", "echo ${who}"))
	require.NoError(t, err)
	require.NoError(t, d.Resolve([]cty.Value{cty.StringVal("a")}))
	first, err := d.WriteHash()
	require.NoError(t, err)

	d.Reset()
	assert.False(t, d.Resolved())
	_, hashed := d.ID()
	assert.False(t, hashed)

	require.NoError(t, d.Resolve([]cty.Value{cty.StringVal("b")}))
	second, err := d.WriteHash()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "echo b", d.Script())
}

func TestWriteHash_DedentsSplicedLines(t *testing.T) {
	d, err := New(attrs("spliced", "#!\n    echo a\n    ${x}\n    echo c"))
	require.NoError(t, err)
	require.NoError(t, d.Resolve([]cty.Value{cty.StringVal("echo b1\n    echo b2")}))

	id, err := d.WriteHash()
	require.NoError(t, err)
	want := "#!\necho a\necho b1\necho b2\necho c"
	assert.Equal(t, want, d.Script())
	assert.Equal(t, nodeid.Compute("spliced", want), id)
}

func TestCommand(t *testing.T) {
	dep := nodeid.Compute("dep", "true")
	d, err := New(attrs("use", "cp ${src} ${out}"))
	require.NoError(t, err)
	require.NoError(t, d.Resolve([]cty.Value{value.RefVal(dep), value.OutVal()}))
	_, err = d.WriteHash()
	require.NoError(t, err)

	cmd := d.Command("/work/x/out", func(id nodeid.ID) string { return "/work/x/run/" + id.String() })
	assert.Equal(t, "cp /work/x/run/"+dep.String()+" /work/x/out", cmd)
}

func TestHints(t *testing.T) {
	a := attrs("h", "true")
	a[AttrContainer] = cty.StringVal("alpine:3")
	a[AttrTime] = cty.NumberIntVal(90)
	a[AttrMemory] = cty.NumberIntVal(512)
	a[AttrShell] = cty.StringVal("bash -eu")

	d, err := New(a)
	require.NoError(t, err)
	assert.Equal(t, Hints{
		Container: "alpine:3",
		Time:      90 * time.Second,
		Memory:    "512",
		Shell:     "bash -eu",
	}, d.Hints())

	a[AttrTime] = cty.StringVal("1m30s")
	d, err = New(a)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d.Hints().Time)
}

func TestHintsDoNotChangeIdentity(t *testing.T) {
	plain := attrs("x", "true")
	hinted := attrs("x", "true")
	hinted[AttrContainer] = cty.StringVal("busybox")

	hash := func(a map[string]cty.Value) nodeid.ID {
		d, err := New(a)
		require.NoError(t, err)
		require.NoError(t, d.Resolve(nil))
		id, err := d.WriteHash()
		require.NoError(t, err)
		return id
	}
	assert.Equal(t, hash(plain), hash(hinted))
}
