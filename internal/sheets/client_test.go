package sheets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timtanatarov/daydi-spa/internal/utils"
)

var sampleRow = Row{"2024-03-05 07:09", "Anna", "anna@example.com", "+79991234567", "@anna"}

func TestAppendRowInitializesEmptySheetOnce(t *testing.T) {
	backend := &fakeBackend{}
	client := New(backend)

	require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))

	assert.Equal(t, []string{"values", "update", "format", "append"}, backend.calls)
	assert.Equal(t, []string{"A1:E1", "A1", "", "A1"}, backend.ranges)
	assert.Equal(t, DefaultHeaders, backend.header)
	assert.Equal(t, [][]string{sampleRow[:]}, backend.appends)

	require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))
	assert.Equal(t, 1, backend.count("format"), "second append must not initialize again")
	assert.Equal(t, 2, backend.count("values"), "header state is checked on every append")
	assert.Equal(t, 2, backend.opens)
}

func TestAppendRowSkipsInitWhenAnyHeaderCellSet(t *testing.T) {
	backend := &fakeBackend{header: []string{"", " ", "", "Phone", ""}}
	client := New(backend)

	require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))

	assert.Equal(t, []string{"values", "append"}, backend.calls)
	assert.Equal(t, 0, backend.count("format"))
}

func TestAppendRowTreatsBlankHeaderAsEmpty(t *testing.T) {
	backend := &fakeBackend{header: []string{"", "  ", "\t", "", ""}}

	require.NoError(t, New(backend).AppendRow(context.Background(), sampleRow, ""))
	assert.Equal(t, 1, backend.count("format"))
}

func TestAppendRowRangeResolution(t *testing.T) {
	t.Run("explicit range wins", func(t *testing.T) {
		backend := &fakeBackend{header: DefaultHeaders}
		client := New(backend, WithDefaultRange("Configured!A1"))

		require.NoError(t, client.AppendRow(context.Background(), sampleRow, "Explicit!A1"))
		assert.Equal(t, []string{"Explicit!A1:E1", "Explicit!A1"}, backend.ranges)
	})

	t.Run("configured default", func(t *testing.T) {
		backend := &fakeBackend{header: DefaultHeaders}
		client := New(backend, WithDefaultRange("Лист1!A1"))

		require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))
		assert.Equal(t, []string{"'Лист1'!A1:E1", "Лист1!A1"}, backend.ranges)
	})

	t.Run("whitespace default falls back to A1", func(t *testing.T) {
		backend := &fakeBackend{header: DefaultHeaders}
		client := New(backend, WithDefaultRange("   "))

		require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))
		assert.Equal(t, []string{"A1:E1", "A1"}, backend.ranges)
	})

	t.Run("title-only range initializes that sheet", func(t *testing.T) {
		backend := &fakeBackend{}
		client := New(backend)

		require.NoError(t, client.AppendRow(context.Background(), sampleRow, "Leads"))
		assert.Equal(t, []string{"Leads!A1:E1", "Leads!A1", "Leads", "Leads"}, backend.ranges)
	})

	t.Run("title ending in digits is not a cell", func(t *testing.T) {
		backend := &fakeBackend{}
		client := New(backend, WithDefaultRange("Sheet1"))

		require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))
		require.NoError(t, client.AppendRow(context.Background(), sampleRow, "Leads2024"))
		assert.Equal(t, []string{
			"Sheet1!A1:E1", "Sheet1!A1", "Sheet1", "Sheet1",
			"Leads2024!A1:E1", "Leads2024",
		}, backend.ranges)
	})
}

func TestAppendRowUsesConfiguredHeadersForBootstrap(t *testing.T) {
	headers := []string{"Создано", "Имя", "Email", "Телефон", "Телеграм"}
	backend := &fakeBackend{}

	require.NoError(t, New(backend, WithHeaders(headers)).AppendRow(context.Background(), sampleRow, ""))
	assert.Equal(t, headers, backend.header)
}

func TestMissingConfigFailsBeforeOpen(t *testing.T) {
	backend := &fakeBackend{checkFn: func() error { return utils.ConfigError("missing GOOGLE_SHEETS_ID") }}
	client := New(backend)

	err := client.AppendRow(context.Background(), sampleRow, "")
	require.Error(t, err)
	assert.True(t, utils.IsConfig(err))

	err = client.InitSheet(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, utils.IsConfig(err))

	assert.Equal(t, 0, backend.opens)
	assert.Empty(t, backend.calls)
}

func TestRemoteFailuresPropagate(t *testing.T) {
	cause := errors.New("googleapi: Error 429: Quota exceeded")

	t.Run("header read", func(t *testing.T) {
		backend := &fakeBackend{valuesErr: cause}
		err := New(backend).AppendRow(context.Background(), sampleRow, "")

		require.Error(t, err)
		assert.True(t, utils.IsRemote(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 0, backend.count("append"))
	})

	t.Run("format batch", func(t *testing.T) {
		backend := &fakeBackend{formatErr: cause}
		err := New(backend).AppendRow(context.Background(), sampleRow, "")

		require.Error(t, err)
		assert.True(t, utils.IsRemote(err))
		assert.Equal(t, cause.Error(), err.Error())
		assert.Equal(t, 0, backend.count("append"))
	})

	t.Run("open", func(t *testing.T) {
		backend := &fakeBackend{openErr: cause}
		client := New(backend)

		err := client.InitSheet(context.Background(), nil, "")
		require.Error(t, err)
		assert.True(t, utils.IsRemote(err))
		assert.Equal(t, cause.Error(), err.Error())

		err = client.AppendRow(context.Background(), sampleRow, "")
		require.Error(t, err)
		assert.True(t, utils.IsRemote(err))
		assert.Equal(t, cause.Error(), err.Error())
		assert.Empty(t, backend.calls)
	})
}

func TestInitSheetDefaultsAndOverrides(t *testing.T) {
	backend := &fakeBackend{}
	client := New(backend, WithDefaultRange("Contacts!A1"))

	require.NoError(t, client.InitSheet(context.Background(), nil, ""))
	assert.Equal(t, []string{"update", "format"}, backend.calls)
	assert.Equal(t, []string{"Contacts!A1", "Contacts"}, backend.ranges)
	assert.Equal(t, DefaultHeaders, backend.header)

	custom := []string{"When", "Who", "Mail", "Tel", "TG"}
	require.NoError(t, client.InitSheet(context.Background(), custom, "A1"))
	assert.Equal(t, custom, backend.header)
	assert.Equal(t, "A1", backend.ranges[2], "bare range carries no sheet title")
}

func TestInitSheetRejectsWrongHeaderCount(t *testing.T) {
	backend := &fakeBackend{}
	err := New(backend).InitSheet(context.Background(), []string{"a", "b"}, "")

	require.Error(t, err)
	assert.True(t, utils.IsValidation(err))
	assert.Equal(t, 0, backend.opens)
}

func TestConcurrentFirstAppendsInitializeOnce(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	client := New(backend)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.AppendRow(context.Background(), sampleRow, "")
		}()
	}
	close(backend.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.count("format"))
	assert.Equal(t, writers, backend.count("append"))
}

func TestHeaderBootstrapOutlivesCallerCancellation(t *testing.T) {
	backend := &fakeBackend{}
	client := New(backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.AppendRow(ctx, sampleRow, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"values", "update", "format", "append"}, backend.calls)
	assert.Equal(t, DefaultHeaders, backend.header, "initialization finishes for requests sharing the check")
	assert.Empty(t, backend.appends)

	require.NoError(t, client.AppendRow(context.Background(), sampleRow, ""))
	assert.Equal(t, 1, backend.count("format"))
	assert.Len(t, backend.appends, 1)
}

func TestHeaderEmpty(t *testing.T) {
	assert.True(t, HeaderEmpty(nil))
	assert.True(t, HeaderEmpty([][]string{{}}))
	assert.True(t, HeaderEmpty([][]string{{"", " "}}))
	assert.False(t, HeaderEmpty([][]string{{"", "Name"}}))
}
