package reconcile

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// Locally added label names and colors
const (
	LabelHotfix  = "hotfix"
	LabelStaging = "staging"
	LabelDefect  = "defect"

	// ChecklistName holds an item's sub-tasks on a new card
	ChecklistName = "Subtasks"
)

var localLabelColors = map[string]string{
	LabelHotfix:  "red",
	LabelStaging: "green",
	LabelDefect:  "orange",
}

// Rules configure a Planner
type Rules struct {
	// KeyPattern finds work item keys in commit messages
	KeyPattern        *regexp.Regexp
	AtomicKeyPrefixes []string
	Roster            models.Roster
	ArchiveThreshold  int
	ArchiveBoardID    string
	// SprintName names the archive list; archiving is skipped without it
	SprintName string
	// TestLinks maps keys to their test-case manager page
	TestLinks map[string]string
}

func (r Rules) isAtomic(key string) bool {
	for _, p := range r.AtomicKeyPrefixes {
		if p != "" && strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// Outcome is what the plan intends for one work item
type Outcome struct {
	Key  string
	Rung Rung
	From models.ListRole
	To   models.ListRole
	// CardID of the item's live card before the run
	CardID string
	// Skip is set when the item was left out of planning
	Skip string
}

// Plan is the full set of board mutations for one run, in application order:
// duplicate removal, moves, labels and members, archiving, creations.
type Plan struct {
	BoardID   string
	Lists     map[models.ListRole]string
	Mutations []models.Mutation
	Outcomes  []Outcome
}

// Count returns how many mutations of a kind the plan holds
func (p *Plan) Count(kind models.MutationKind) int {
	n := 0
	for _, m := range p.Mutations {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

type Planner struct {
	rules Rules
	log   *zap.SugaredLogger
}

func NewPlanner(rules Rules, log *zap.SugaredLogger) *Planner {
	return &Planner{rules: rules, log: log.Named("reconcile")}
}

type creation struct {
	item     models.WorkItem
	decision Decision
}

// Plan computes the mutations that bring the board in line with items. It does not
// touch the board. Items are annotated in place with their staging commit.
func (p *Planner) Plan(items []models.WorkItem, commits []models.CommitRecord, snap *Snapshot) *Plan {
	AnnotateStaging(items, commits, p.rules.KeyPattern)

	lanes := p.lanes(items, snap)
	plan := &Plan{BoardID: snap.BoardID, Lists: snap.ListIDs}

	var heals, moves, decorations []models.Mutation
	var pending []creation
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		key := normalizeKey(item.Key)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		if !item.HasQAReadyDate() && !item.InStaging {
			reason := "no QA-ready date"
			if !item.IsDefect {
				p.log.Warnw("work item has no QA-ready date, skipping; may indicate someone bypassed intended transitions",
					"key", item.Key, "status", item.Status)
			}
			plan.Outcomes = append(plan.Outcomes, Outcome{Key: item.Key, Skip: reason})
			continue
		}

		var live []Located
		frozen := false
		for _, loc := range snap.Locate(item.Key) {
			if loc.Role.IsLive() {
				live = append(live, loc)
			} else if loc.Role == models.ListComplete {
				frozen = true
			}
		}

		current := models.ListNone
		if len(live) > 0 {
			current = live[0].Role
		}
		d := Classify(item, current, p.rules.isAtomic(item.Key))
		p.log.Debugw("classified", "key", item.Key, "rung", int(d.Rung), "reason", d.Rung.String(), "list", d.Target.String())

		out := Outcome{Key: item.Key, Rung: d.Rung, From: current, To: d.Target}

		if len(live) == 0 {
			switch {
			case frozen:
				out.From, out.To = models.ListComplete, models.ListComplete
			case d.Target == models.ListNone, d.Target == models.ListComplete:
				out.To = models.ListNone
			default:
				pending = append(pending, creation{item: item, decision: d})
			}
			plan.Outcomes = append(plan.Outcomes, out)
			continue
		}

		keeper := live[0]
		for _, loc := range live {
			if loc.Role == d.Target {
				keeper = loc
				break
			}
		}
		for _, loc := range live {
			if loc.Card.ID == keeper.Card.ID {
				continue
			}
			p.log.Warnw("duplicate live card", "key", item.Key, "card", loc.Card.ID, "list", loc.Role.String())
			heals = append(heals, models.Mutation{
				Kind:   models.MutationDelete,
				Key:    item.Key,
				CardID: loc.Card.ID,
				From:   loc.Role,
				Reason: "duplicate live card",
			})
			lanes[loc.Role].remove(item.Key)
		}
		out.From = keeper.Role
		out.CardID = keeper.Card.ID

		if d.Rung == RungDefect {
			out.To = keeper.Role
			plan.Outcomes = append(plan.Outcomes, out)
			continue
		}
		if d.Target == models.ListNone {
			out.To = keeper.Role
		} else if d.Target != keeper.Role {
			lanes[keeper.Role].remove(item.Key)
			moves = append(moves, models.Mutation{
				Kind:     models.MutationMove,
				Key:      item.Key,
				CardID:   keeper.Card.ID,
				From:     keeper.Role,
				To:       d.Target,
				Position: p.place(lanes[d.Target], d, item),
				Reason:   d.Rung.String(),
			})
		}
		decorations = append(decorations, p.decorate(item, keeper.Card, snap)...)
		plan.Outcomes = append(plan.Outcomes, out)
	}

	plan.Mutations = append(plan.Mutations, heals...)
	plan.Mutations = append(plan.Mutations, moves...)
	plan.Mutations = append(plan.Mutations, decorations...)
	if m, ok := p.archive(snap, moves); ok {
		plan.Mutations = append(plan.Mutations, m)
	}
	plan.Mutations = append(plan.Mutations, p.creations(pending, lanes, snap)...)
	return plan
}

// lanes seeds the running list views from the snapshot. Cards of items in this run are
// dated by the item's sort date; other cards have unknown dates.
func (p *Planner) lanes(items []models.WorkItem, snap *Snapshot) map[models.ListRole]*lane {
	dates := make(map[string]time.Time, len(items))
	for _, it := range items {
		dates[normalizeKey(it.Key)] = it.SortDate()
	}
	lanes := make(map[models.ListRole]*lane, len(models.TrackedLists)+1)
	for _, role := range models.TrackedLists {
		l := &lane{}
		for _, c := range snap.Cards[role] {
			l.entries = append(l.entries, Entry{Key: c.Name, Pos: c.Pos, Date: dates[normalizeKey(c.Name)]})
		}
		lanes[role] = l
	}
	lanes[models.ListNone] = &lane{}
	return lanes
}

// place picks the position of an item entering a list. Todo is ordered by date unless
// the rung pins the card to the top; other lists take failed-before items at the top.
func (p *Planner) place(l *lane, d Decision, item models.WorkItem) models.Position {
	e := Entry{Key: item.Key, Date: item.SortDate()}
	switch {
	case d.Placement == PlaceTop:
		return l.top(e)
	case d.Target == models.ListTodo && d.Placement == PlaceByDate:
		return l.byDate(e)
	case d.Target != models.ListTodo && item.HasFailedQA:
		return l.top(e)
	default:
		return l.bottom(e)
	}
}

// DesiredLabels are the labels an item's card should carry: the tracker's labels plus
// the local hotfix, staging and defect labels.
func DesiredLabels(item models.WorkItem) []models.Label {
	var out []models.Label
	index := map[string]int{}
	add := func(name, color string) {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return
		}
		if i, ok := index[name]; ok {
			if color != "" {
				out[i].Color = color
			}
			return
		}
		index[name] = len(out)
		out = append(out, models.Label{Name: name, Color: color})
	}
	for _, l := range item.Labels {
		add(l, "")
	}
	if item.IsHotfix {
		add(LabelHotfix, localLabelColors[LabelHotfix])
	}
	if item.InStaging {
		add(LabelStaging, localLabelColors[LabelStaging])
	}
	if item.HasFailedQA {
		add(LabelDefect, localLabelColors[LabelDefect])
	}
	return out
}

// resolveLabel uses the board's own label when one with the same name exists
func resolveLabel(l models.Label, snap *Snapshot) models.Label {
	if bl, ok := snap.BoardLabel(l.Name); ok {
		return bl
	}
	return l
}

// decorate adds the labels a live card is missing and its tester when it has no member
func (p *Planner) decorate(item models.WorkItem, card models.Card, snap *Snapshot) []models.Mutation {
	var out []models.Mutation
	for _, l := range DesiredLabels(item) {
		if card.HasLabel(l.Name) {
			continue
		}
		out = append(out, models.Mutation{
			Kind:   models.MutationAddLabel,
			Key:    item.Key,
			CardID: card.ID,
			Label:  resolveLabel(l, snap),
		})
	}
	if member := p.rules.Roster.BoardMemberID(item.TestedBy); member != "" && len(card.MemberIDs) == 0 {
		out = append(out, models.Mutation{
			Kind:     models.MutationAddMember,
			Key:      item.Key,
			CardID:   card.ID,
			MemberID: member,
		})
	}
	return out
}

// archive plans filing the Complete list away once it reaches the threshold, counting
// the cards this run moves into it
func (p *Planner) archive(snap *Snapshot, moves []models.Mutation) (models.Mutation, bool) {
	if p.rules.ArchiveThreshold <= 0 {
		return models.Mutation{}, false
	}
	count := snap.Count(models.ListComplete)
	for _, m := range moves {
		if m.To == models.ListComplete {
			count++
		}
	}
	if count < p.rules.ArchiveThreshold {
		return models.Mutation{}, false
	}
	if p.rules.SprintName == "" || p.rules.ArchiveBoardID == "" {
		p.log.Warnw("complete list is full but there is no sprint or archive board to file it under",
			"count", count, "sprint", p.rules.SprintName)
		return models.Mutation{}, false
	}
	return models.Mutation{
		Kind: models.MutationArchive,
		From: models.ListComplete,
		Archive: &models.ArchiveTarget{
			BoardID:  p.rules.ArchiveBoardID,
			ListName: ArchiveListName(p.rules.SprintName),
			Count:    count,
		},
		Reason: "complete list reached archive threshold",
	}, true
}

// ArchiveListName is the archive board list a sprint's finished cards are filed under
func ArchiveListName(sprint string) string {
	return strings.ReplaceAll(strings.TrimSpace(sprint), " ", "_") + "_archive"
}

// creations builds cards for items without one, oldest first so that date ordering in
// Todo holds among them too
func (p *Planner) creations(pending []creation, lanes map[models.ListRole]*lane, snap *Snapshot) []models.Mutation {
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].item.SortDate().Before(pending[j].item.SortDate())
	})

	out := make([]models.Mutation, 0, len(pending))
	for _, c := range pending {
		item := c.item
		labels := DesiredLabels(item)
		for i := range labels {
			labels[i] = resolveLabel(labels[i], snap)
		}
		card := &models.NewCard{
			Name:        item.Key,
			Desc:        ComposeDescription(item, item.QAReadyAt, p.rules.TestLinks[item.Key]),
			Position:    p.place(lanes[c.decision.Target], c.decision, item),
			Labels:      labels,
			MemberID:    p.rules.Roster.BoardMemberID(item.TestedBy),
			Attachments: item.Attachments,
			Checklist:   item.Subtasks,
		}
		out = append(out, models.Mutation{
			Kind:     models.MutationCreate,
			Key:      item.Key,
			To:       c.decision.Target,
			Position: card.Position,
			Card:     card,
			Reason:   c.decision.Rung.String(),
		})
	}
	return out
}

// AnnotateStaging marks every item referenced by a commit message as in staging and
// records its newest such commit
func AnnotateStaging(items []models.WorkItem, commits []models.CommitRecord, keyPattern *regexp.Regexp) {
	newest := make(map[string]models.CommitRecord)
	for _, c := range commits {
		for _, key := range commitKeys(c.Message, keyPattern) {
			if prev, ok := newest[key]; !ok || c.CommittedAt.After(prev.CommittedAt) {
				newest[key] = c
			}
		}
	}
	for i := range items {
		c, ok := newest[normalizeKey(items[i].Key)]
		if !ok {
			continue
		}
		items[i].InStaging = true
		items[i].LastCommitAt = c.CommittedAt
		items[i].CommitMessage = c.Message
	}
}

var fallbackKeyPattern = regexp.MustCompile(`(?i)[A-Z][A-Z0-9]+-[0-9]+`)

func commitKeys(message string, re *regexp.Regexp) []string {
	if re == nil {
		re = fallbackKeyPattern
	}
	var keys []string
	for _, m := range re.FindAllStringSubmatch(message, -1) {
		key := m[0]
		if len(m) > 1 && m[1] != "" {
			key = m[1]
		}
		// keys are often written as [ABC-3]
		keys = append(keys, normalizeKey(strings.Trim(key, "[]")))
	}
	return keys
}
