package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

const sampleCSV = `parcel_id,address,owner,city,region,property_type,square_footage,year_built,condition
1-0425-100,450 Cedar Ave,J Meyer,Richland,benton,single_family,2400,1995,good
1-0425-101,12 Vine St,,Kennewick,benton,condo,1100,2010,
1-0425-102,88 Canal Dr,,Pasco,benton,commercial,5200,1988,average
`

func TestParseCSV(t *testing.T) {
	records, rowErrors, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "1-0425-100", first.ParcelID)
	assert.Equal(t, "450 Cedar Ave", first.Address)
	assert.Equal(t, "J Meyer", first.Owner)
	assert.Equal(t, "Richland", first.City)
	assert.Equal(t, valuation.SingleFamily, first.PropertyType)
	assert.Equal(t, 2400.0, first.SquareFootage)
	assert.Equal(t, 1995, first.YearBuilt)
	assert.Equal(t, valuation.ConditionGood, first.Condition)

	// Optional condition may be blank
	assert.Equal(t, valuation.Condition(""), records[1].Condition)
}

func TestParseCSVCollectsRowErrors(t *testing.T) {
	input := `parcel_id,address,city,region,property_type,square_footage,year_built
1-0001,1 Main St,Richland,benton,single_family,2000,1990
,2 Main St,Richland,benton,single_family,2000,1990
1-0003,3 Main St,Richland,benton,castle,2000,1990
1-0004,4 Main St,Richland,benton,condo,-50,1990
1-0005,5 Main St,Richland,benton,condo,1200,soon
1-0006,6 Main St,Richland,benton,townhouse,1500,2005
`

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, records, 2)
	require.Len(t, rowErrors, 4)

	// Line numbers count from the header as line 1
	assert.Equal(t, 3, rowErrors[0].Line)
	assert.Contains(t, rowErrors[0].Reason, "parcel_id")
	assert.Contains(t, rowErrors[1].Reason, "property_type")
	assert.Contains(t, rowErrors[2].Reason, "square_footage")
	assert.Contains(t, rowErrors[3].Reason, "year_built")
}

func TestParseCSVRejectsBadHeader(t *testing.T) {
	input := `parcel_id,address,city
1-0001,1 Main St,Richland
`

	_, _, err := ParseCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property_type")
	assert.Contains(t, err.Error(), "year_built")
}

func TestParseCSVHeaderCaseInsensitive(t *testing.T) {
	input := `Parcel_ID,Address,City,Region,Property_Type,Square_Footage,Year_Built
1-0001,1 Main St,Richland,benton,single_family,2000,1990
`

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	assert.Len(t, records, 1)
}
