package links

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	"github.com/tidwall/gjson"
)

// LinkedDataKey marks an object inside a property payload as a link
const LinkedDataKey = "__linkedData"

// ErrInvalidLink is returned for linked data with malformed identifiers
var ErrInvalidLink = errors.New("invalid link")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ParseLinksFromProperties walks a JSON property object depth first and
// returns every link found, in document order.
//
// A link is an object carrying a "__linkedData" object with an "entityId".
// "__linkedData" without an "entityId" describes an aggregation and is skipped.
// An empty "entityVersionId" is treated as absent. path prefixes the JSON path
// recorded on each link, an empty path means the root "$".
func ParseLinksFromProperties(properties []byte, sourceEntityID uuid.UUID, path string) ([]*model.Link, error) {
	links := []*model.Link{}
	if len(properties) == 0 {
		return links, nil
	}
	if !gjson.ValidBytes(properties) {
		return nil, helper.NewError("parse properties", fmt.Errorf("properties are not valid json"))
	}

	if path == "" {
		path = "$"
	}

	p := &parser{
		sourceEntityID: sourceEntityID,
		links:          links,
	}
	err := p.walk(gjson.ParseBytes(properties), path)
	if err != nil {
		return nil, err
	}

	return p.links, nil
}

// ParseLinksFromEntity parses the links of an entity version in the key order
// the properties are stored in, see model.Entity.PropertiesJSON.
func ParseLinksFromEntity(entity *model.Entity) ([]*model.Link, error) {
	properties, err := entity.PropertiesJSON()
	if err != nil {
		return nil, helper.NewError("marshal properties", err)
	}

	links, err := ParseLinksFromProperties(properties, entity.EntityID, "")
	if err != nil {
		return nil, err
	}

	for _, link := range links {
		link.AccountID = entity.AccountID
		if entity.EntityVersionID != uuid.Nil {
			versionID := entity.EntityVersionID
			link.SourceEntityVersionID = &versionID
		}
	}

	return links, nil
}

type parser struct {
	sourceEntityID uuid.UUID
	links          []*model.Link
}

func (p *parser) walk(value gjson.Result, path string) error {
	var err error

	switch {
	case value.IsObject():
		linkedData := value.Get(LinkedDataKey)
		if linkedData.IsObject() {
			return p.addLink(linkedData, path)
		}

		value.ForEach(func(key, child gjson.Result) bool {
			err = p.walk(child, joinKey(path, key.String()))
			return err == nil
		})
	case value.IsArray():
		i := 0
		value.ForEach(func(_, child gjson.Result) bool {
			err = p.walk(child, fmt.Sprintf("%s[%d]", path, i))
			i++
			return err == nil
		})
	}

	return err
}

func (p *parser) addLink(linkedData gjson.Result, path string) error {
	entityID := linkedData.Get("entityId")
	if !entityID.Exists() || entityID.Type == gjson.Null {
		return nil
	}
	if entityID.Type != gjson.String {
		return helper.NewError(fmt.Sprintf("parse link at %s", path), fmt.Errorf("%w: entityId must be a string", ErrInvalidLink))
	}

	destinationID, err := uuid.Parse(entityID.String())
	if err != nil {
		return helper.NewError(fmt.Sprintf("parse link at %s", path), fmt.Errorf("%w: entityId %q: %v", ErrInvalidLink, entityID.String(), err))
	}

	link := &model.Link{
		SourceEntityID:      p.sourceEntityID,
		DestinationEntityID: destinationID,
		Path:                path,
	}

	entityVersionID := linkedData.Get("entityVersionId")
	if entityVersionID.Type == gjson.String && entityVersionID.String() != "" {
		versionID, err := uuid.Parse(entityVersionID.String())
		if err != nil {
			return helper.NewError(fmt.Sprintf("parse link at %s", path), fmt.Errorf("%w: entityVersionId %q: %v", ErrInvalidLink, entityVersionID.String(), err))
		}
		link.DestinationEntityVersionID = &versionID
	}

	p.links = append(p.links, link)
	return nil
}

func joinKey(path string, key string) string {
	if identifierPattern.MatchString(key) {
		return path + "." + key
	}
	return path + "[" + strconv.Quote(key) + "]"
}
