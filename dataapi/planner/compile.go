package planner

import (
	"fmt"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/storage"
	"github.com/statspub/dataapi/dataapi/storage/sqlbuilder"
)

// CompileOutput is the result of compiling an observation query
type CompileOutput struct {
	CTEs         []CTE
	ResultCTE    string
	ExplainSteps []string
}

// CTE represents a Common Table Expression
type CTE struct {
	Name string
	SQL  string
}

func (c CTE) String() string {
	return fmt.Sprintf("%s AS (%s)", c.Name, c.SQL)
}

// Compiler turns criteria into CTEs that each yield observation_id
type Compiler struct {
	builder      storage.Builder
	subjectID    int64
	ctes         []CTE
	explainSteps []string
	cteCounter   int
}

// Compile compiles a normalized query. Every criterion becomes a CTE scoped
// to the subject; the result is their intersection.
func Compile(builder storage.Builder, q criteria.NormalizedQuery) (*CompileOutput, error) {
	if q.SubjectID <= 0 {
		return nil, fmt.Errorf("subject id is required")
	}
	c := &Compiler{builder: builder, subjectID: q.SubjectID}

	parts := []string{c.compileSubject()}

	if q.GeographicLevel != "" {
		parts = append(parts, c.compileLevel(q.GeographicLevel))
	}
	if len(q.TimePeriods) > 0 {
		name, err := c.compileTimePeriods(q.TimePeriods)
		if err != nil {
			return nil, err
		}
		parts = append(parts, name)
	}
	if len(q.LocationIDs) > 0 {
		parts = append(parts, c.compileLocationIDs(q.LocationIDs))
	}
	if len(q.LocationCodes) > 0 {
		name, err := c.compileLocationCodes(q.GeographicLevel, q.LocationCodes)
		if err != nil {
			return nil, err
		}
		parts = append(parts, name)
	}
	if len(q.FilterItemIDs) > 0 {
		name, err := c.compileFilterItems(q.FilterItemIDs, q.FilterGrouping)
		if err != nil {
			return nil, err
		}
		parts = append(parts, name)
	}

	result := parts[0]
	for _, next := range parts[1:] {
		result = c.intersect(result, next)
	}

	return &CompileOutput{
		CTEs:         c.ctes,
		ResultCTE:    result,
		ExplainSteps: c.explainSteps,
	}, nil
}

func (c *Compiler) nextCTEName() string {
	name := fmt.Sprintf("cte_%d", c.cteCounter)
	c.cteCounter++
	return name
}

func (c *Compiler) add(cte CTE, step string) string {
	c.ctes = append(c.ctes, cte)
	c.explainSteps = append(c.explainSteps, step)
	return cte.Name
}

func (c *Compiler) intersect(left, right string) string {
	name := c.nextCTEName()
	sql := fmt.Sprintf("SELECT observation_id FROM %s INTERSECT SELECT observation_id FROM %s", left, right)
	return c.add(CTE{Name: name, SQL: sql}, fmt.Sprintf("INTERSECT %s AND %s", left, right))
}

func (c *Compiler) compileSubject() string {
	ph := c.builder.Arg(c.subjectID)
	sql := fmt.Sprintf("SELECT id AS observation_id FROM observations WHERE subject_id = %s", ph)
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, fmt.Sprintf("SUBJECT %d", c.subjectID))
}

func (c *Compiler) compileLevel(level criteria.GeographicLevel) string {
	phSubject := c.builder.Arg(c.subjectID)
	phLevel := c.builder.Arg(string(level))
	sql := fmt.Sprintf("SELECT id AS observation_id FROM observations WHERE subject_id = %s AND geographic_level = %s",
		phSubject, phLevel)
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, fmt.Sprintf("LEVEL %s", level))
}

// periodRow is the JSON shape of one expanded period.
type periodRow struct {
	Year           int    `json:"year"`
	TimeIdentifier string `json:"time_identifier"`
}

var periodFields = []sqlbuilder.JSONField{
	{Key: "year", Type: sqlbuilder.JSONInt},
	{Key: "time_identifier", Type: sqlbuilder.JSONText},
}

func (c *Compiler) compileTimePeriods(periods []criteria.TimePeriod) (string, error) {
	rows := make([]periodRow, len(periods))
	for i, tp := range periods {
		rows[i] = periodRow{Year: tp.Year, TimeIdentifier: string(tp.Identifier)}
	}
	listSQL, err := c.builder.Records(rows, periodFields...)
	if err != nil {
		return "", err
	}
	listName := fmt.Sprintf("tp_%d", c.cteCounter)
	c.ctes = append(c.ctes, CTE{Name: listName, SQL: listSQL})

	phSubject := c.builder.Arg(c.subjectID)
	sql := fmt.Sprintf("SELECT o.id AS observation_id FROM observations o JOIN %s tp ON tp.year = o.year AND tp.time_identifier = o.time_identifier WHERE o.subject_id = %s",
		listName, phSubject)
	step := fmt.Sprintf("TIME %s..%s (%d periods)", periods[0], periods[len(periods)-1], len(periods))
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, step), nil
}

func (c *Compiler) compileLocationIDs(ids []int64) string {
	phSubject := c.builder.Arg(c.subjectID)
	idList := c.builder.IntList(ids)
	sql := fmt.Sprintf("SELECT id AS observation_id FROM observations WHERE subject_id = %s AND location_id IN (%s)",
		phSubject, idList)
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, fmt.Sprintf("LOCATION ids=%d", len(ids)))
}

func (c *Compiler) compileLocationCodes(level criteria.GeographicLevel, codes []string) (string, error) {
	if level == "" {
		return "", fmt.Errorf("location codes require a geographic level")
	}
	phSubject := c.builder.Arg(c.subjectID)
	codeList := c.builder.TextList(codes)

	var sql string
	switch level {
	case criteria.LevelSchool:
		sql = fmt.Sprintf("SELECT id AS observation_id FROM observations WHERE subject_id = %s AND school_laestab IN (%s)",
			phSubject, codeList)
	case criteria.LevelProvider:
		sql = fmt.Sprintf("SELECT id AS observation_id FROM observations WHERE subject_id = %s AND provider_ukprn IN (%s)",
			phSubject, codeList)
	default:
		col, ok := level.LocationColumn()
		if !ok {
			return "", fmt.Errorf("geographic level %s has no location codes", level)
		}
		sql = fmt.Sprintf("SELECT o.id AS observation_id FROM observations o JOIN locations l ON l.id = o.location_id WHERE o.subject_id = %s AND l.%s_code IN (%s)",
			phSubject, col, codeList)
	}
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, fmt.Sprintf("LOCATION %s codes=%d", level, len(codes))), nil
}

// compileFilterItems resolves the requested items against the subject's
// filter hierarchy, then keeps observations matching at least one item from
// every distinct group key.
func (c *Compiler) compileFilterItems(ids []int64, grouping criteria.FilterGrouping) (string, error) {
	var groupKey string
	switch grouping {
	case criteria.GroupByFilterGroup, "":
		groupKey = "fi.filter_group_id"
	case criteria.GroupByFilter:
		groupKey = "fg.filter_id"
	default:
		return "", fmt.Errorf("unknown filter grouping %q", grouping)
	}

	reqName := fmt.Sprintf("fi_req_%d", c.cteCounter)
	phSubject := c.builder.Arg(c.subjectID)
	idList := c.builder.IntList(ids)
	reqSQL := fmt.Sprintf("SELECT fi.id AS filter_item_id, %s AS group_key FROM filter_items fi JOIN filter_groups fg ON fg.id = fi.filter_group_id JOIN filters f ON f.id = fg.filter_id WHERE f.subject_id = %s AND fi.id IN (%s)",
		groupKey, phSubject, idList)
	c.ctes = append(c.ctes, CTE{Name: reqName, SQL: reqSQL})

	sql := fmt.Sprintf("SELECT ofi.observation_id FROM observation_filter_items ofi JOIN %s r ON r.filter_item_id = ofi.filter_item_id GROUP BY ofi.observation_id HAVING COUNT(DISTINCT r.group_key) = (SELECT COUNT(DISTINCT group_key) FROM %s)",
		reqName, reqName)
	step := fmt.Sprintf("FILTER ITEMS %d grouped by %s", len(ids), grouping)
	return c.add(CTE{Name: c.nextCTEName(), SQL: sql}, step), nil
}
