package utils

import (
	"math"
)

// math.go - математические утилиты торгового ядра
//
// Назначение:
// Вспомогательные функции для цен, комиссий и позиций.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundToTick: округление цены до шага котировки
// - RoundPrice: доменное округление (VND / USD правила)
// - TradeFee: комиссия сделки
// - NetProceeds: выручка продавца после комиссии
// - WeightedAveragePrice: средневзвешенная цена позиции

// RoundToTick округляет цену к ближайшему кратному tick.
//
// Параметры:
//   - value: исходная цена
//   - tick: минимальный шаг котировки
//
// Возвращает:
//   - Округлённое значение, кратное tick
//   - Если tick <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToTick(28123, 50) = 28100
//   - RoundToTick(28130, 50) = 28150
func RoundToTick(value, tick float64) float64 {
	if tick <= 0 {
		return value
	}
	return math.Round(value/tick) * tick
}

// RoundPrice применяет доменное правило округления цены:
// котировки выше 1000 (VND) идут шагом 50, остальные (USD) - до
// двух знаков после запятой.
//
// Примеры:
//   - RoundPrice(28123.7) = 28100
//   - RoundPrice(185.127) = 185.13
func RoundPrice(value float64) float64 {
	if value > 1000 {
		return RoundToTick(value, 50)
	}
	return math.Round(value*100) / 100
}

// TradeFee вычисляет комиссию сделки.
//
// Параметры:
//   - notional: объем сделки в деньгах (price * quantity)
//   - feeRate: ставка комиссии в долях (0.001 = 0.1%)
//
// Возвращает:
//   - Комиссию; 0 при неположительных аргументах
func TradeFee(notional, feeRate float64) float64 {
	if notional <= 0 || feeRate <= 0 {
		return 0
	}
	return notional * feeRate
}

// NetProceeds вычисляет выручку продавца после комиссии:
// notional - notional*feeRate.
func NetProceeds(notional, feeRate float64) float64 {
	return notional - TradeFee(notional, feeRate)
}

// WeightedAveragePrice вычисляет новую среднюю цену позиции после
// докупки.
//
// Формула:
//
//	avg' = (avg*qty + price*addQty) / (qty + addQty)
//
// Параметры:
//   - avg, qty: текущая средняя цена и размер позиции
//   - price, addQty: цена и объем докупки
//
// Возвращает:
//   - Новую среднюю цену; при qty+addQty <= 0 возвращает 0
func WeightedAveragePrice(avg float64, qty int64, price float64, addQty int64) float64 {
	total := qty + addQty
	if total <= 0 {
		return 0
	}
	return (avg*float64(qty) + price*float64(addQty)) / float64(total)
}
