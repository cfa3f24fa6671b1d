package compute

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/apperr"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/dataset"
	"github.com/erdenaykaratas/barcin.ai.chatbot/internal/extract"
)

func hrRegistry() *dataset.Registry {
	staff := dataset.New("calisanlar.csv",
		[]string{"Sıra No", "Ad Soyad", "Departman", "Maaş"},
		[][]string{
			{"1", "Ali Veli", "Bilgi İşlem", "30000"},
			{"2", "Ayşe Kaya", "Bilgi İşlem", "40000"},
			{"3", "Mehmet Demir", "Muhasebe", "20000"},
			{"4", "Zeynep Ak", "Muhasebe", "-500"},
			{"5", "Can Yıldız", "Muhasebe", ""},
		})
	return dataset.NewRegistry([]*dataset.Dataset{staff}, nil)
}

func TestDetectQueryType(t *testing.T) {
	tests := []struct {
		query string
		want  QueryType
	}{
		{"en yüksek maaş en düşük maaşın kaç katı", QueryRatio},
		{"maaşlar arasında kaç kat fark var", QueryRatio},
		{"Bilgi İşlem departmanı ortalama maaş", QueryDepartment},
		{"toplam çalışan sayısı", QueryEmployeeCount},
		{"kaç çalışan var", QueryEmployeeCount},
		{"500 * 12 kaç eder?", QueryArithmetic},
		{"(3 + 4) * 2 hesapla", QueryArithmetic},
		{"ortalama maaş", QueryStatistics},
		{"ciro medyanı", QueryStatistics},
		{"100'den 120'ye artış yüzde kaç", QueryPercentage},
		{"bir şey", QueryArithmetic},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectQueryType(tt.query), tt.query)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		query string
		want  float64
	}{
		{"500 * 12 kaç eder?", 6000},
		{"5 ile 3 topla", 8},
		{"(3 + 4) * 2", 14},
		{"-5 + 3", -2},
		{"2,5 × 4", 10},
		{"10 - 2 - 3", 5},
	}

	for _, tt := range tests {
		res, err := Arithmetic(tt.query, extract.Empty())
		require.NoError(t, err, tt.query)
		assert.InDelta(t, tt.want, res.Details["result"], 1e-9, tt.query)
	}
}

func TestArithmeticFormatsTurkish(t *testing.T) {
	res, err := Arithmetic("500 * 12 kaç eder?", extract.Empty())
	require.NoError(t, err)
	assert.Equal(t, "6.000", res.Details["formatted_result"])
	assert.Equal(t, "çarpma", res.Details["operation"])
}

func TestArithmeticErrors(t *testing.T) {
	for _, q := range []string{"10 / 0", "(4 + 6) / (2 - 2)", "kaç eder", "5 ile"} {
		_, err := Arithmetic(q, extract.Empty())
		var compErr *apperr.ComputationError
		assert.ErrorAs(t, err, &compErr, q)
	}

	_, err := Arithmetic("10 / 0", extract.Empty())
	assert.Contains(t, apperr.UserMessage(err), "Sıfıra bölme")
}

func TestEvaluateRejectsMalformed(t *testing.T) {
	for _, expr := range []string{"", "3 +", "(1 + 2", "1 2", "1..2 + 1"} {
		_, err := Evaluate(expr)
		assert.Error(t, err, expr)
	}
}

func TestStatisticsMeanSkipsInvalidSalaries(t *testing.T) {
	res, err := Statistics("ortalama maaş", hrRegistry())
	require.NoError(t, err)

	assert.Equal(t, "mean", res.Details["statistic_type"])
	assert.Equal(t, "Maaş", res.Details["column"])
	assert.Equal(t, 3, res.Details["data_count"])
	assert.InDelta(t, 30000.0, res.Details["result"], 1e-9)
}

func TestStatisticsSummary(t *testing.T) {
	res, err := Statistics("maaş istatistikleri", hrRegistry())
	require.NoError(t, err)

	assert.Equal(t, "summary", res.Details["statistic_type"])
	assert.InDelta(t, 10000.0, res.Details["std"], 1e-9)
	assert.InDelta(t, 25000.0, res.Details["q25"], 1e-9)
	assert.InDelta(t, 35000.0, res.Details["q75"], 1e-9)
	require.NotNil(t, res.Chart)
	assert.Equal(t, []string{"Min", "Q1", "Medyan", "Q3", "Max"}, res.Chart.Labels)
}

func TestStatisticsFallsBackToNumericColumn(t *testing.T) {
	ds := dataset.New("stok.csv", []string{"ID", "Ürün", "Adet"}, [][]string{
		{"1", "Kalem", "10"},
		{"2", "Defter", "30"},
	})
	res, err := Statistics("ortalama ne", dataset.NewRegistry([]*dataset.Dataset{ds}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Adet", res.Details["column"])
	assert.InDelta(t, 20.0, res.Details["result"], 1e-9)
}

func TestDetectStatistic(t *testing.T) {
	assert.Equal(t, StatMean, DetectStatistic("ortalama maaş"))
	assert.Equal(t, StatMedian, DetectStatistic("maaş medyanı"))
	assert.Equal(t, StatMax, DetectStatistic("en yüksek ciro"))
	assert.Equal(t, StatMin, DetectStatistic("en düşük maaş"))
	assert.Equal(t, StatStd, DetectStatistic("maaş standart sapması"))
	assert.Equal(t, StatSummary, DetectStatistic("maaş dağılımı"))
}

func TestRatioFirstRowWinsTies(t *testing.T) {
	ds := dataset.New("maas.csv", []string{"Ad Soyad", "Maaş"}, [][]string{
		{"Ali Veli", "3000"},
		{"Ayşe Kaya", "3000"},
		{"Mehmet Demir", "9000"},
	})
	res, err := Ratio("en yüksek maaş en düşük maaşın kaç katı", dataset.NewRegistry([]*dataset.Dataset{ds}, nil))
	require.NoError(t, err)

	assert.InDelta(t, 3.0, res.Details["ratio"], 1e-9)
	assert.Equal(t, "Ali Veli", res.Details["min_employee"])
	assert.Equal(t, "Mehmet Demir", res.Details["max_employee"])
	assert.Contains(t, res.Text, "Makul")
}

func TestRatioUsesNamedColumn(t *testing.T) {
	staff := dataset.New("calisanlar.csv", []string{"Ad Soyad", "Maaş"}, [][]string{
		{"Ali Veli", "10000"},
		{"Ayşe Kaya", "20000"},
	})
	stores := dataset.New("magazalar.csv", []string{"Mağaza", "Ciro"}, [][]string{
		{"Kadıköy", "300000"},
		{"Konak", "100000"},
	})
	reg := dataset.NewRegistry([]*dataset.Dataset{staff, stores}, nil)

	res, err := Ratio("en yüksek ciro en düşüğün kaç katı", reg)
	require.NoError(t, err)
	assert.Equal(t, "Ciro", res.Details["column"])
	assert.InDelta(t, 3.0, res.Details["ratio"], 1e-9)
	assert.Equal(t, "Kadıköy", res.Details["max_label"])
	assert.Equal(t, "Konak", res.Details["min_label"])

	res, err = Ratio("en yüksek maaş en düşüğün kaç katı", reg)
	require.NoError(t, err)
	assert.Equal(t, "Maaş", res.Details["column"])
	assert.InDelta(t, 2.0, res.Details["ratio"], 1e-9)

	res, err = Ratio("en yüksek en düşüğün kaç katı", reg)
	require.NoError(t, err)
	assert.Equal(t, "Maaş", res.Details["column"])
}

func TestRatioWithoutSalaryColumn(t *testing.T) {
	ds := dataset.New("magaza.csv", []string{"Mağaza", "Ciro"}, [][]string{{"Kadıköy", "100"}})
	_, err := Ratio("maaş kaç kat", dataset.NewRegistry([]*dataset.Dataset{ds}, nil))
	var nf *apperr.DataNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGrowthAndPercentageOf(t *testing.T) {
	g, err := Growth(100, 120)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, g, 1e-9)

	_, err = Growth(0, 120)
	assert.Error(t, err)

	p, err := PercentageOf(25, 200)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, p, 1e-9)

	_, err = PercentageOf(1, 0)
	assert.Error(t, err)
}

func TestPercentage(t *testing.T) {
	res, err := Percentage("100'den 120'ye artış yüzde kaç", extract.Empty())
	require.NoError(t, err)
	assert.InDelta(t, 20.0, res.Details["growth_rate"], 1e-9)

	res, err = Percentage("25 sayısı 200'ün yüzde kaçı", extract.Empty())
	require.NoError(t, err)
	assert.InDelta(t, 12.5, res.Details["percentage"], 1e-9)

	res, err = Percentage("500'ün yüzde 20'si", extract.Empty())
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Details["result"], 1e-9)

	_, err = Percentage("yüzde", extract.Empty())
	assert.Error(t, err)
}

func TestResolveDepartment(t *testing.T) {
	departments := []string{"Bilgi İşlem", "Muhasebe", "Yönetim", "Ürün Yönetimi"}

	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"bilgi departmanı ortalama", "Bilgi İşlem", true},
		{"BİLGİ İŞLEM farkı", "Bilgi İşlem", true},
		{"ürün yönetimi ortalaması", "Ürün Yönetimi", true},
		{"it departmanı ortalama", "Bilgi İşlem", true},
		{"mali departman ortalama", "Muhasebe", true},
		{"hr departmanı ortalama", "", false},
		{"pazarlama departmanı ortalama", "", false},
	}

	for _, tt := range tests {
		got, ok := ResolveDepartment(tt.query, departments, DefaultAliases)
		assert.Equal(t, tt.ok, ok, tt.query)
		assert.Equal(t, tt.want, got, tt.query)
	}
}

func TestDepartmentAggregate(t *testing.T) {
	res, err := DepartmentAggregate("bilgi departmanı ortalama maaş", hrRegistry(), DefaultAliases)
	require.NoError(t, err)

	assert.Equal(t, "Bilgi İşlem", res.Details["department"])
	assert.InDelta(t, 35000.0, res.Details["department_mean"], 1e-9)
	assert.InDelta(t, 30000.0, res.Details["overall_mean"], 1e-9)
	assert.InDelta(t, 5000.0, res.Details["difference"], 1e-9)
	assert.Equal(t, []string{"Ali Veli", "Ayşe Kaya"}, res.Details["employees"])
}

func TestDepartmentAggregateListsUnknown(t *testing.T) {
	res, err := DepartmentAggregate("pazarlama departmanı ortalama", hrRegistry(), DefaultAliases)
	require.NoError(t, err)

	assert.Equal(t, false, res.Details["resolved"])
	assert.Equal(t, []string{"Bilgi İşlem", "Muhasebe"}, res.Details["departments"])
	assert.Contains(t, res.Text, "Sistemde bulunan departmanlar")
}

func TestUniqueCountAcrossDatasets(t *testing.T) {
	a := dataset.New("a.csv", []string{"Ad Soyad"}, [][]string{{"Ali Veli"}, {" ali veli "}})
	b := dataset.New("b.csv", []string{"Çalışan"}, [][]string{{"Ali Veli"}, {"AB"}, {"nan"}})

	res, err := UniqueCount(dataset.NewRegistry([]*dataset.Dataset{a, b}, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Details["employee_count"])
	assert.Equal(t, []string{"Ali Veli"}, res.Details["unique_employees"])
	assert.Equal(t, 5, res.Details["total_rows"])
}

func TestUniqueCountWithoutEmployees(t *testing.T) {
	_, err := UniqueCount(dataset.NewRegistry(nil, nil))
	assert.Equal(t, "Sistemde çalışan verisi bulunamadı.", apperr.UserMessage(err))
}

func TestEngineDepartmentHeadcount(t *testing.T) {
	e := New()
	query := "Bilgi İşlem departmanında kaç çalışan var"
	ents := extract.New(extract.DictionaryFrom(hrRegistry())).Extract(query)

	res, qt, err := e.Process(query, ents, hrRegistry())
	require.NoError(t, err)
	assert.Equal(t, QueryEmployeeCount, qt)
	assert.Equal(t, 2, res.Details["employee_count"])
}

func TestEngineCustomAliases(t *testing.T) {
	e := New(WithAliases([]Alias{{Token: "bt", Target: "Bilgi İşlem"}}))
	dept, ok := e.ResolveDepartment("bt ekibi", hrRegistry())
	require.True(t, ok)
	assert.Equal(t, "Bilgi İşlem", dept)
	assert.Greater(t, len(e.Aliases()), len(DefaultAliases))
}

func TestResultsAreJSONSafe(t *testing.T) {
	e := New()
	reg := hrRegistry()
	for _, q := range []string{
		"500 * 12 kaç eder?",
		"ortalama maaş",
		"maaş istatistikleri",
		"en yüksek maaş en düşük maaşın kaç katı",
		"bilgi departmanı ortalama maaş",
		"toplam çalışan sayısı",
	} {
		res, _, err := e.Process(q, extract.Empty(), reg)
		require.NoError(t, err, q)
		_, err = json.Marshal(res)
		assert.NoError(t, err, q)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "6.000", FormatNumber(6000))
	assert.Equal(t, "1.234,50", FormatNumber(1234.5))
	assert.Equal(t, "-2", FormatNumber(-2))
	assert.Equal(t, "30.000 TL", FormatMoney(29999.6))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"30000", 30000, true},
		{"1.500.000", 1500000, true},
		{"1.500,75", 1500.75, true},
		{"2,5", 2.5, true},
		{"25.000,00 TL", 25000, true},
		{"12000 TL", 12000, true},
		{"-500", -500, true},
		{"15.000", 15000, true},
		{"15.000 TL", 15000, true},
		{"-1.250", -1250, true},
		{"12.5", 12.5, true},
		{"0.125", 0.125, true},
		{"1234.567", 1234.567, true},
		{"nan", 0, false},
		{"", 0, false},
		{"bilinmiyor", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}
