package equipment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType(t *testing.T) {
	cases := []struct {
		id   string
		mode Mode
		want Kind
	}{
		{"SET-003200", Any, KindSample},
		{"BOX-000001", Any, KindBox},
		{"DOS-004000", Any, KindDosimeter},
		{"DOS-004000.1.22.333", Any, KindDosimeter},
		{"DOS-004000.1.2.3.4.5.6", Any, KindNone},
		{"DOS-004000", Child, KindNone},
		{"DOS-004000.7", Child, KindDosimeter},
		{"SET-003200", Child, KindSample},
		{"DOS-004000.7", Root, KindNone},
		{"BOX-000400", Root, KindBox},
		{"SET-32", Any, KindNone},
		{"set-003200", Any, KindNone},
		{"", Any, KindNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Type(c.id, c.mode), "id %q mode %d", c.id, c.mode)
	}
}

func TestFormatAndNumber(t *testing.T) {
	assert.Equal(t, "BOX-000007", Format(PrefixBox, 7))
	assert.Equal(t, "SET-123456", Format(PrefixSample, 123456))

	n, ok := Number("DOS-004012.3")
	assert.True(t, ok)
	assert.Equal(t, 4012, n)

	_, ok = Number("DOS-4012")
	assert.False(t, ok)
}

func TestIsChildOf(t *testing.T) {
	assert.True(t, IsChildOf("DOS-004000", "DOS-004000.12"))
	assert.True(t, IsChildOf("DOS-004000.1", "DOS-004000.1.2"))
	assert.False(t, IsChildOf("DOS-004000", "DOS-004000.1.2"))
	assert.False(t, IsChildOf("DOS-004000", "DOS-004001.1"))
	assert.False(t, IsChildOf("DOS-004000", "DOS-004000.1234"))
}

func TestInforEAMID(t *testing.T) {
	code, ok := InforEAMID("SET-003201")
	assert.True(t, ok)
	assert.Equal(t, "PXXISET001-CR003201", code)

	code, _ = InforEAMID("DOS-004000.2")
	assert.Equal(t, "PXXIDOS001-CR004000.2", code)

	code, _ = InforEAMID("BOX-000010")
	assert.Equal(t, "HCPWPDI002-CR000010", code)

	_, ok = InforEAMID("sample-1")
	assert.False(t, ok)
}

func TestCategoryDescAndMaterial(t *testing.T) {
	assert.Equal(t, "Sample Set", CategoryDesc("SET-003201"))
	assert.Equal(t, "IRRAD Dosimeters", CategoryDesc("DOS-004000.1"))
	assert.Equal(t, "IRRAD Container", CategoryDesc("BOX-000001"))
	assert.Equal(t, "", CategoryDesc("nope"))
	assert.Equal(t, "ALUMINIUM", Material(KindDosimeter))
	assert.Equal(t, "OTHER", Material(KindBox))
}
