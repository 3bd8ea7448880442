package convert

import "testing"

func TestNormalizeEscapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "escaped underscore",
			input:    `snake\_case\_name`,
			expected: `snake_case_name`,
		},
		{
			name:     "version number dot",
			input:    `Version 2\.0 is out`,
			expected: `Version 2.0 is out`,
		},
		{
			name:     "ordered list position keeps escape",
			input:    `1\. not a list`,
			expected: `1\. not a list`,
		},
		{
			name:     "paren after digit mid line",
			input:    `see step 3\) below`,
			expected: `see step 3) below`,
		},
		{
			name:     "doubled backslash before letter",
			input:    `C:\\Users`,
			expected: `C:\Users`,
		},
		{
			name:     "doubled backslash before punctuation",
			input:    `a\\*b`,
			expected: `a\\*b`,
		},
		{
			name:     "doubled backslash before n",
			input:    `a\\nb`,
			expected: `a\\nb`,
		},
		{
			name:     "code span untouched",
			input:    "run `a\\_b` now\\_",
			expected: "run `a\\_b` now_",
		},
		{
			name:     "comment untouched",
			input:    `<!-- wiki:status title="a\_b" --> x\_y`,
			expected: `<!-- wiki:status title="a\_b" --> x_y`,
		},
		{
			name:     "fenced code untouched",
			input:    "a\\_b\n```\nc\\_d\n```\ne\\_f",
			expected: "a_b\n```\nc\\_d\n```\ne_f",
		},
		{
			name:     "quoted fence untouched",
			input:    "> ~~~\n> x\\_y\n> ~~~",
			expected: "> ~~~\n> x\\_y\n> ~~~",
		},
		{
			name:     "escaped asterisk kept",
			input:    `2 \* 3`,
			expected: `2 \* 3`,
		},
		{
			name:     "angle bracket entities",
			input:    `a &lt; b &gt; c`,
			expected: `a \< b \> c`,
		},
		{
			name:     "entity at line start",
			input:    `&gt; not a quote`,
			expected: `\> not a quote`,
		},
		{
			name:     "entities in code span untouched",
			input:    "`&lt;b&gt;` and &lt;b&gt;",
			expected: "`&lt;b&gt;` and \\<b\\>",
		},
		{
			name:     "other entities untouched",
			input:    `&copy; &amp;`,
			expected: `&copy; &amp;`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeEscapes(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeEscapes(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeEscapesIdempotent(t *testing.T) {
	inputs := []string{
		`snake\_case`,
		`C:\\\\Users\\Docs`,
		`1\. item and 2\. more`,
		`a\\\_b`,
		"`x\\_y` and z\\_w",
		"```\n\\\\n\n```",
		`\\`,
		`trailing\\`,
		`a &lt; b &gt; c`,
		"`&lt;` &lt;",
	}

	for _, in := range inputs {
		once := NormalizeEscapes(in)
		twice := NormalizeEscapes(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once %q, twice %q", in, once, twice)
		}
	}
}
