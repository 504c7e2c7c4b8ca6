package unlock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookieDomain(t *testing.T) {
	assert.Equal(t, ".site.example", cookieDomain("https://www.site.example"))
	assert.Equal(t, ".site.example", cookieDomain("https://site.example/path"))
	assert.Equal(t, "", cookieDomain("::bad::"))
}

func TestFirstTextJSKeepsShortCandidate(t *testing.T) {
	js := firstTextJS([]string{".main_answer", ".WB_answer_wrap"}, 100)

	assert.Contains(t, js, "'.main_answer', '.WB_answer_wrap'")
	assert.Contains(t, js, "text.length > 100")
	// A candidate that exists but stays under the length bar must still
	// be returned rather than discarded.
	assert.Contains(t, js, `if (fallback === "") fallback = text;`)
	assert.True(t, strings.Contains(js, "return fallback;"))
}

func TestClickUnlockJSTargetsFreeLookButton(t *testing.T) {
	js := clickUnlockJS()

	assert.Contains(t, js, unlockButtonSelector)
	assert.Contains(t, js, "btn.click()")
}
