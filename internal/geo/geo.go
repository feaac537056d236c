// Package geo содержит чистую геометрию ядра: расстояние по большому кругу
// и квантование координат в ячейки сетки для сужения поиска инцидентов.
package geo

import "math"

// EarthRadiusM - радиус сферической модели Земли в метрах.
// Приближение достаточно для субкилометровых расстояний.
const EarthRadiusM = 6371000.0

// HaversineM возвращает расстояние между двумя точками в метрах
// по формуле гаверсинусов
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// Bucket квантует координату в номер ячейки сетки: floor(value / cellSize).
// При cellSize 0.001° ячейка по широте ~111 м. Точка у границы ячейки может
// относиться к инциденту в соседней, поэтому поиск ведётся по окрестности ±1.
func Bucket(value, cellSize float64) int {
	return int(math.Floor(value / cellSize))
}
