package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

func TestCasesCmd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		missing  []string
	}{
		{
			name:     "all cases",
			args:     []string{"cases"},
			contains: []string{"C001 - Alice", "C002 - Bob", "D003 - Carol", "3 case(s)"},
		},
		{
			name:     "filter by name",
			args:     []string{"cases", "BOB"},
			contains: []string{"C002 - Bob", "1 case(s)"},
			missing:  []string{"Alice", "Carol"},
		},
		{
			name:     "no match",
			args:     []string{"cases", "zzz"},
			contains: []string{"No cases found."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := newMockForm(testCases()...)
			useServices(t, &Services{Form: form})

			out, err := execute(t, nil, tt.args...)

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.missing {
				assert.NotContains(t, out, s)
			}
			assert.Equal(t, 0, form.Refreshes)
			assert.Equal(t, 1, form.Flushes)
		})
	}
}

func TestCasesCmd_MarksSelected(t *testing.T) {
	form := newMockForm(testCases()...)
	form.Form.CaseID = "C002"
	useServices(t, &Services{Form: form})

	out, err := execute(t, nil, "cases")

	require.NoError(t, err)
	assert.Contains(t, out, "* C002 - Bob")
	assert.Contains(t, out, "  C001 - Alice")
}

func TestCasesCmd_Refresh(t *testing.T) {
	form := newMockForm(testCases()...)
	useServices(t, &Services{Form: form})

	_, err := execute(t, nil, "cases", "--refresh")

	require.NoError(t, err)
	assert.Equal(t, 1, form.Refreshes)
}

func TestCasesCmd_Errors(t *testing.T) {
	t.Run("init fails", func(t *testing.T) {
		form := newMockForm()
		form.InitErr = domain.ErrNetwork
		useServices(t, &Services{Form: form})

		_, err := execute(t, nil, "cases")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNetwork)
		assert.Contains(t, err.Error(), "loading cases")
	})

	t.Run("refresh fails", func(t *testing.T) {
		form := newMockForm(testCases()...)
		form.RefreshErr = errors.New("timeout")
		useServices(t, &Services{Form: form})

		_, err := execute(t, nil, "cases", "--refresh")

		assert.EqualError(t, err, "refreshing: timeout")
	})
}

func TestRefreshCmd(t *testing.T) {
	form := newMockForm(testCases()...)
	form.Found = domain.Lookup{CaseID: "C001", RowID: 7, Found: true}
	useServices(t, &Services{Form: form})

	out, err := execute(t, nil, "refresh")

	require.NoError(t, err)
	assert.Equal(t, 1, form.Refreshes)
	assert.Contains(t, out, "Loaded 3 case(s).")
	assert.Contains(t, out, "C001 already has a submission (row 7).")
}
