package cache

import "github.com/dmitrijs2005/casefile/internal/client/models"

func (c *Cache) Counties() ([]models.County, bool) {
	var v []models.County
	ok := c.Get(KeyCounties, &v)
	return v, ok
}

func (c *Cache) SetCounties(v []models.County) error {
	return c.Set(KeyCounties, v)
}

// County looks a cached county up by its code.
func (c *Cache) County(code string) (models.County, bool) {
	counties, _ := c.Counties()
	for _, county := range counties {
		if county.Code == code {
			return county, true
		}
	}
	return models.County{}, false
}

func (c *Cache) Cities(countyID int64) ([]models.City, bool) {
	var v []models.City
	ok := c.Get(CitiesKey(countyID), &v)
	return v, ok
}

func (c *Cache) SetCities(countyID int64, v []models.City) error {
	return c.Set(CitiesKey(countyID), v)
}

func (c *Cache) Forms() ([]models.FormSummary, bool) {
	var v []models.FormSummary
	ok := c.Get(KeyForms, &v)
	return v, ok
}

func (c *Cache) SetForms(v []models.FormSummary) error {
	return c.Set(KeyForms, v)
}

func (c *Cache) FormSummary(formID int64) (models.FormSummary, bool) {
	forms, _ := c.Forms()
	for _, f := range forms {
		if f.ID == formID {
			return f, true
		}
	}
	return models.FormSummary{}, false
}

func (c *Cache) FormDetails(formID int64) ([]models.FormSection, bool) {
	var v []models.FormSection
	ok := c.Get(FormDetailsKey(formID), &v)
	return v, ok
}

func (c *Cache) SetFormDetails(formID int64, v []models.FormSection) error {
	return c.Set(FormDetailsKey(formID), v)
}
