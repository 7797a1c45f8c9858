package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/adsharma/truth-serum/domain/graph"
	"github.com/adsharma/truth-serum/domain/ids"
	"github.com/adsharma/truth-serum/domain/kinds"
	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/schema"
	"github.com/adsharma/truth-serum/domain/typeregistry"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/testutil"
	"github.com/adsharma/truth-serum/pkg/apperror"
)

type ServiceSuite struct {
	suite.Suite
	open    func(testing.TB) *database.DB
	ctx     context.Context
	db      *database.DB
	alloc   *ids.Allocator
	catalog *schema.Catalog
	store   *relations.Store
	svc     *graph.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, &ServiceSuite{open: testutil.NewTestDB})
}

func TestServiceSuite_Postgres(t *testing.T) {
	testutil.SkipWithoutPostgres(t)
	suite.Run(t, &ServiceSuite{open: testutil.NewPostgresTestDB})
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = s.open(s.T())
	log := testutil.Logger()

	s.alloc = ids.NewAllocator(s.db.DB, log)
	reg := typeregistry.NewRegistry(typeregistry.NewRepository(s.db.DB), s.alloc, log)
	s.store = relations.NewStore(s.db.DB, log)
	s.catalog = schema.NewCatalog(s.db.DB, reg, s.store, log, "InstanceOf")
	s.Require().NoError(kinds.Register(s.catalog))
	s.Require().NoError(s.catalog.CreateTables(s.ctx))
	s.Require().NoError(s.catalog.Bootstrap(s.ctx))

	s.svc = graph.NewService(s.db.DB, s.alloc, s.catalog, s.store, log)
}

func (s *ServiceSuite) rows(table string) int {
	return testutil.CountRows(s.T(), s.db.DB, table)
}

func (s *ServiceSuite) typeID(kind string) int64 {
	k, err := s.catalog.Kind(kind)
	s.Require().NoError(err)
	rec, err := k.EnsureType(s.ctx)
	s.Require().NoError(err)
	return rec.ID
}

func (s *ServiceSuite) TestSaveGraph_CapitalScenario() {
	n, err := s.svc.SaveGraph(s.ctx, []graph.Pair{
		graph.PairOf("France", "Paris"),
		graph.PairOf("Italy", "Rome"),
	}, "Country", "City", kinds.CapitalRelation)
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Equal(2, s.rows("countries"))
	s.Equal(2, s.rows("cities"))
	s.Equal(2, s.rows("relations"))

	capital, err := s.catalog.RelationKind(kinds.CapitalRelation)
	s.Require().NoError(err)
	rec, ok := capital.Resolved()
	s.Require().True(ok)

	rels, err := s.store.Find(s.ctx, relations.Filter{RType: &rec.ID})
	s.Require().NoError(err)
	s.Require().Len(rels, 2)

	cities, err := s.catalog.Kind("City")
	s.Require().NoError(err)
	countries, err := s.catalog.Kind("Country")
	s.Require().NoError(err)

	names := map[string]string{}
	for _, r := range rels {
		country, err := countries.Get(s.ctx, r.Src)
		s.Require().NoError(err)
		city, err := cities.Get(s.ctx, r.Dst)
		s.Require().NoError(err)
		names[country.(*kinds.Country).Name] = city.(*kinds.City).Name
		s.Equal(1.0, r.Probability)
		s.Equal(relations.GroundTruth, r.Viewpoint)
	}
	s.Equal(map[string]string{"France": "Paris", "Italy": "Rome"}, names)
}

func (s *ServiceSuite) TestSaveGraph_AllocatesTwoIDsPerRow() {
	before, err := s.alloc.Next(s.ctx)
	s.Require().NoError(err)

	pairs := []graph.Pair{
		graph.PairOf("Ada Lovelace", "London"),
		graph.PairOf("Alan Turing", "Wilmslow"),
		graph.PairOf("Grace Hopper", "Arlington"),
	}
	n, err := s.svc.SaveGraph(s.ctx, pairs, "Person", "City", kinds.ResidesInRelation)
	s.Require().NoError(err)
	s.Equal(3, n)

	after, err := s.alloc.Next(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2*len(pairs)+1), after-before)
}

func (s *ServiceSuite) TestSaveGraph_EveryEntityReified() {
	_, err := s.svc.SaveGraph(s.ctx, []graph.Pair{
		graph.PairOf("Spain", "Madrid"),
		graph.PairOf("Japan", "Tokyo"),
	}, "Country", "City", kinds.CapitalRelation)
	s.Require().NoError(err)

	instanceOf, ok := s.catalog.InstanceOf().Resolved()
	s.Require().True(ok)

	for kind, table := range map[string]string{"Country": "countries", "City": "cities"} {
		k, err := s.catalog.Kind(kind)
		s.Require().NoError(err)
		all, err := k.List(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(all, 2, table)

		for _, e := range all {
			edges, err := s.store.TypesOf(s.ctx, e.EntityID())
			s.Require().NoError(err)
			s.Require().Len(edges, 1)
			s.Equal(instanceOf.ID, edges[0].RType)
			s.Equal(s.typeID(kind), edges[0].Dst)
		}
	}
	s.Equal(4, s.rows("type_relations"))
}

func (s *ServiceSuite) TestSaveGraph_FailedTransactionLeavesNothing() {
	_, err := s.db.NewRaw("DROP TABLE cities").Exec(s.ctx)
	s.Require().NoError(err)

	_, err = s.svc.SaveGraph(s.ctx, []graph.Pair{
		graph.PairOf("France", "Paris"),
		graph.PairOf("Italy", "Rome"),
	}, "Country", "City", kinds.CapitalRelation)
	s.Require().Error(err)
	s.ErrorIs(err, apperror.ErrDatabase)

	s.Equal(0, s.rows("countries"))
	s.Equal(0, s.rows("type_relations"))
	s.Equal(0, s.rows("relations"))
}

func (s *ServiceSuite) TestSaveGraph_Validation() {
	_, err := s.svc.SaveGraph(s.ctx, []graph.Pair{graph.PairOf("France", "Paris")}, "Country", "Dragon", kinds.CapitalRelation)
	s.ErrorIs(err, apperror.ErrUnknownKind)

	_, err = s.svc.SaveGraph(s.ctx, []graph.Pair{graph.PairOf("France", "Paris")}, "Country", "City", "Nope")
	s.ErrorIs(err, apperror.ErrUnknownKind)

	_, err = s.svc.SaveGraph(s.ctx, []graph.Pair{{Left: graph.Row{"France"}, Right: graph.Row{}}}, "Country", "City", kinds.CapitalRelation)
	s.ErrorIs(err, apperror.ErrInvalidArgument)

	s.Equal(0, s.rows("countries"))
}

func (s *ServiceSuite) TestSaveGraph_Empty() {
	counter := testutil.CountQueries(s.db.DB)
	n, err := s.svc.SaveGraph(s.ctx, nil, "Country", "City", kinds.CapitalRelation)
	s.Require().NoError(err)
	s.Zero(n)
	s.Zero(counter.Total())
}

func (s *ServiceSuite) TestSaveObjs() {
	before, err := s.alloc.Next(s.ctx)
	s.Require().NoError(err)

	n, err := s.svc.SaveObjs(s.ctx, []graph.Row{
		{48.8584, 2.2945},
		{"41.8902", "12.4922"},
	}, "Address")
	s.Require().NoError(err)
	s.Equal(2, n)

	after, err := s.alloc.Next(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), after-before)

	s.Equal(2, s.rows("addresses"))
	s.Equal(2, s.rows("type_relations"))
	s.Equal(0, s.rows("relations"))
}

func (s *ServiceSuite) TestCreateAndRelate() {
	person := &kinds.Person{Name: "Marie Curie"}
	personID, err := s.svc.Create(s.ctx, person)
	s.Require().NoError(err)
	s.Equal(personID, person.ID)

	city := &kinds.City{Name: "Warsaw"}
	cityID, err := s.svc.Create(s.ctx, city)
	s.Require().NoError(err)
	s.NotEqual(personID, cityID)

	born := time.Date(1867, time.November, 7, 0, 0, 0, 0, time.UTC)
	rel, err := s.svc.Relate(s.ctx, kinds.BirthPlaceRelation, relations.Params{
		Src:   personID,
		Dst:   cityID,
		Start: &born,
	})
	s.Require().NoError(err)
	s.Equal(born, rel.Start)

	got, err := s.store.AsOf(s.ctx, personID, rel.RType, time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal(cityID, got.Dst)

	_, err = s.svc.Relate(s.ctx, kinds.BirthPlaceRelation, relations.Params{Src: personID, Dst: cityID, Start: &born})
	s.ErrorIs(err, apperror.ErrDuplicateRelation)

	_, err = s.svc.Create(s.ctx, &struct{ schema.Node }{})
	s.ErrorIs(err, apperror.ErrUnknownKind)
}

func (s *ServiceSuite) TestSavePairs_SetsIDs() {
	lefts := []schema.Entity{&kinds.Country{Name: "Peru"}}
	rights := []schema.Entity{&kinds.City{Name: "Lima"}}

	n, err := s.svc.SavePairs(s.ctx, lefts, rights, kinds.CapitalRelation)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.NotZero(lefts[0].EntityID())
	s.Equal(lefts[0].EntityID()+1, rights[0].EntityID())
}

func (s *ServiceSuite) TestFailedWrites_ClearIDs() {
	_, err := s.db.NewRaw("DROP TABLE cities").Exec(s.ctx)
	s.Require().NoError(err)

	lefts := []schema.Entity{&kinds.Country{Name: "France"}, &kinds.Country{Name: "Italy"}}
	rights := []schema.Entity{&kinds.City{Name: "Paris"}, &kinds.City{Name: "Rome"}}
	_, err = s.svc.SavePairs(s.ctx, lefts, rights, kinds.CapitalRelation)
	s.Require().ErrorIs(err, apperror.ErrDatabase)
	for _, e := range append(lefts, rights...) {
		s.Zero(e.EntityID(), "%T kept an id that was never stored", e)
	}

	city := &kinds.City{Name: "Lyon"}
	_, err = s.svc.Create(s.ctx, city)
	s.Require().ErrorIs(err, apperror.ErrDatabase)
	s.Zero(city.ID)
}

func (s *ServiceSuite) TestSavePairs_Validation() {
	_, err := s.svc.SavePairs(s.ctx,
		[]schema.Entity{&kinds.Country{Name: "Peru"}},
		[]schema.Entity{},
		kinds.CapitalRelation)
	s.ErrorIs(err, apperror.ErrInvalidArgument)

	_, err = s.svc.SavePairs(s.ctx,
		[]schema.Entity{&kinds.Country{Name: "Peru"}, &kinds.City{Name: "Cusco"}},
		[]schema.Entity{&kinds.City{Name: "Lima"}, &kinds.City{Name: "Arequipa"}},
		kinds.CapitalRelation)
	s.ErrorIs(err, apperror.ErrInvalidArgument)

	s.Equal(0, s.rows("countries"))
}
