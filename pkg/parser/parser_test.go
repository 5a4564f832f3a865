package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LanguagePHP, DetectLanguage("src/User.php"))
	assert.Equal(t, LanguagePHP, DetectLanguage("views/page.phtml"))
	assert.Equal(t, LanguageUnknown, DetectLanguage("main.go"))
	assert.Equal(t, LanguagePHP, DetectLanguage("inc/head.inc", ".inc"))
	assert.Equal(t, LanguageUnknown, DetectLanguage("src/User.php", ".inc"))
}

func TestParseLanguageString(t *testing.T) {
	assert.Equal(t, LanguagePHP, ParseLanguageString("PHP"))
	assert.Equal(t, LanguageUnknown, ParseLanguageString("cobol"))
}

func TestParse_Simple(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("<?php\nfunction hello() { return 1; }\n"), LanguagePHP)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Kind())
	assert.False(t, root.HasError())
}

func TestParse_PartialTreeOnSyntaxError(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.Parse([]byte("<?php class {{{"), LanguagePHP)
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
}

func TestParse_UnknownLanguage(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	_, err := m.Parse([]byte("x"), LanguageUnknown)
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	tree, err := m.ParseFile([]byte("<?php $x = 1;"), "a.php")
	require.NoError(t, err)
	tree.Close()

	_, err = m.ParseFile([]byte("x"), "a.txt")
	assert.Error(t, err)
}

func TestParse_Concurrent(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()

	src := []byte("<?php\nclass A { public function m() {} }\n")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := m.Parse(src, LanguagePHP)
			assert.NoError(t, err)
			if tree != nil {
				tree.Close()
			}
		}()
	}
	wg.Wait()

	stats := m.GetStats()
	assert.Equal(t, 16, stats.ParsesCalled)
}
