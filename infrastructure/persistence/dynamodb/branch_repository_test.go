package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTable keeps items by PK and answers single-key GSI queries one item per
// page so pagination is exercised
type fakeTable struct {
	items   map[string]map[string]types.AttributeValue
	order   []string
	exists  bool
	created *dynamodb.CreateTableInput
	err     error
	queries int
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue), exists: true}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeTable) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[stringAttr(in.Key, "PK")]}, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	pk := stringAttr(in.Item, "PK")
	if _, ok := f.items[pk]; !ok {
		f.order = append(f.order, pk)
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries++

	var partition string
	for _, v := range in.ExpressionAttributeValues {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			partition = s.Value
		}
	}

	start := 0
	if in.ExclusiveStartKey != nil {
		last := stringAttr(in.ExclusiveStartKey, "PK")
		for i, pk := range f.order {
			if pk == last {
				start = i + 1
			}
		}
	}

	for i := start; i < len(f.order); i++ {
		item := f.items[f.order[i]]
		if stringAttr(item, "GSI1PK") != partition {
			continue
		}
		return &dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{item},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": item["PK"]},
		}, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeTable) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if !f.exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func (f *fakeTable) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = in
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func newRepo(table *fakeTable, metrics *observability.Collector) *BranchRepository {
	r := NewBranchRepository(table, "kujisan", "GenerationIndex", zap.NewNop(), metrics)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return r
}

func sani() *entities.TreePerson {
	return &entities.TreePerson{
		ID:         "sani",
		Name:       "Sani Kujabi",
		Generation: 1,
		Sex:        valueobjects.SexMale,
		Slug:       "sani-kujabi",
		ImageRef:   "image-sani",
		Unions: []entities.Union{{
			ID:      "union-sani-awa",
			Partner: &entities.PartnerSummary{ID: "awa", Name: "Awa Ceesay", Sex: valueobjects.SexFemale},
			Children: []entities.ChildSummary{
				{ID: "lamin", Name: "Lamin", Generation: 2, Sex: valueobjects.SexMale, ChildCount: 2},
				{ID: "fatou", Name: "Fatou", Generation: 2, Sex: valueobjects.SexFemale},
			},
		}},
	}
}

func TestSaveAndFetchBranchRoundTrip(t *testing.T) {
	table := newFakeTable()
	repo := newRepo(table, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveBranch(ctx, sani()))

	item := table.items["PERSON#sani"]
	require.NotNil(t, item)
	assert.Equal(t, "BRANCH", stringAttr(item, "SK"))
	assert.Equal(t, "GEN#1#SEX#male", stringAttr(item, "GSI1PK"))
	assert.Equal(t, "2024-01-02T03:04:05Z", stringAttr(item, "UpdatedAt"))

	got, err := repo.FetchBranch(ctx, "sani")
	require.NoError(t, err)
	assert.Equal(t, sani(), got)
}

func TestFetchBranchUnknownIsAbsent(t *testing.T) {
	metrics := observability.NewCollector("test")
	repo := newRepo(newFakeTable(), metrics)

	got, err := repo.FetchBranch(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.FetchDuration))
}

func TestFetchBranchFiltersStoredGarbage(t *testing.T) {
	table := newFakeTable()
	repo := newRepo(table, nil)

	bad := sani()
	bad.Unions[0].Children = append(bad.Unions[0].Children, entities.ChildSummary{ID: "null"})
	item, err := toItem(bad, time.Now())
	require.NoError(t, err)
	table.items["PERSON#sani"] = item

	got, err := repo.FetchBranch(context.Background(), "sani")
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.PersonID{"lamin", "fatou"}, got.ChildIDs())
}

func TestFetchBranchMalformedSubjectIsAbsent(t *testing.T) {
	table := newFakeTable()
	repo := newRepo(table, nil)

	bad := sani()
	bad.Generation = 0
	item, err := toItem(bad, time.Now())
	require.NoError(t, err)
	table.items["PERSON#sani"] = item

	got, err := repo.FetchBranch(context.Background(), "sani")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFetchRootPaginatesGenerationIndex(t *testing.T) {
	table := newFakeTable()
	repo := newRepo(table, nil)
	ctx := context.Background()

	require.NoError(t, repo.SaveBranch(ctx, sani()))
	require.NoError(t, repo.SaveBranch(ctx, &entities.TreePerson{ID: "awa", Generation: 1, Sex: valueobjects.SexFemale}))
	require.NoError(t, repo.SaveBranch(ctx, &entities.TreePerson{ID: "lamin", Generation: 2, Sex: valueobjects.SexMale}))
	require.NoError(t, repo.SaveBranch(ctx, &entities.TreePerson{ID: "bakary", Generation: 1, Sex: valueobjects.SexMale}))

	roots, err := repo.FetchRoot(ctx)

	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, valueobjects.PersonID("sani"), roots[0].ID)
	assert.Equal(t, valueobjects.PersonID("bakary"), roots[1].ID)
	assert.Equal(t, 3, table.queries)
}

func TestSaveBranchRejectsInvalidSubject(t *testing.T) {
	repo := newRepo(newFakeTable(), nil)

	err := repo.SaveBranch(context.Background(), &entities.TreePerson{ID: "undefined"})
	assert.True(t, pkgerrors.IsValidation(err))

	err = repo.SaveBranch(context.Background(), nil)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestClassifySDKErrors(t *testing.T) {
	cases := map[string]pkgerrors.ErrorType{
		"ResourceNotFoundException":              pkgerrors.ErrorTypeUnavailable,
		"ProvisionedThroughputExceededException": pkgerrors.ErrorTypeRateLimit,
		"ValidationException":                    pkgerrors.ErrorTypeValidation,
		"SomethingElse":                          pkgerrors.ErrorTypeDatabase,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			table := newFakeTable()
			table.err = &smithy.GenericAPIError{Code: code, Message: "boom"}

			_, err := newRepo(table, nil).FetchBranch(context.Background(), "sani")

			require.Error(t, err)
			assert.True(t, pkgerrors.IsType(err, want), "got %v", err)
		})
	}

	table := newFakeTable()
	table.err = errors.New("dial tcp: connection refused")
	_, err := newRepo(table, nil).FetchRoot(context.Background())
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeDatabase))
}

func TestEnsureTableCreatesIndexOnce(t *testing.T) {
	table := newFakeTable()
	table.exists = false
	repo := newRepo(table, nil)

	created, err := repo.EnsureTable(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, table.created)
	require.Len(t, table.created.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "GenerationIndex", aws.ToString(table.created.GlobalSecondaryIndexes[0].IndexName))

	created, err = repo.EnsureTable(context.Background())
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, repo.HealthCheck(context.Background()))
}
